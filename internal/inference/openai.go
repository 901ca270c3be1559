package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civic-sense/inference-services/internal/assets"
	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/media"
)

// OpenAIModels serves all three model roles through an OpenAI-compatible
// chat completions endpoint.
type OpenAIModels struct {
	client *openai.Client
	model  string
	labels []string
}

// NewOpenAIModels creates a client. baseURL may point at any compatible
// server; empty uses api.openai.com.
func NewOpenAIModels(apiKey, model, baseURL string, labels []string) (*OpenAIModels, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModels{client: openai.NewClientWithConfig(cfg), model: model, labels: labels}, nil
}

// ModelName returns the chat model in use.
func (o *OpenAIModels) ModelName() string { return o.model }

func (o *OpenAIModels) complete(ctx context.Context, op, system string, parts []openai.ChatMessagePart, jsonOut bool) (text string, err error) {
	start := time.Now()
	defer func() { observe(ProviderOpenAI, op, o.model, start, err) }()

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
	if jsonOut {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai %s failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai %s returned no choices", op)
	}
	text = strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai %s returned no text", op)
	}
	return text, nil
}

func imageURLPart(img image.Image) (openai.ChatMessagePart, error) {
	data, err := media.EncodeJPEG(img, media.DefaultMaxDimension)
	if err != nil {
		return openai.ChatMessagePart{}, err
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
			Detail: openai.ImageURLDetailAuto,
		},
	}, nil
}

func textPart(s string) openai.ChatMessagePart {
	return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: s}
}

// Classify implements Classifier.
func (o *OpenAIModels) Classify(ctx context.Context, text string) (Classification, error) {
	raw, err := o.complete(ctx, OpClassify, assets.ClassifySystemPrompt,
		[]openai.ChatMessagePart{textPart(assets.RenderClassifyPrompt(text, o.labels))}, true)
	if err != nil {
		return Classification{}, err
	}
	return parseClassification(raw)
}

// Caption implements Captioner.
func (o *OpenAIModels) Caption(ctx context.Context, img image.Image) (string, error) {
	part, err := imageURLPart(img)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, OpCaption, assets.CaptionSystemPrompt,
		[]openai.ChatMessagePart{part, textPart(assets.RenderCaptionPrompt(caption.Prompt))}, false)
}

// Detect implements Detector.
func (o *OpenAIModels) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	part, err := imageURLPart(img)
	if err != nil {
		return nil, err
	}
	raw, err := o.complete(ctx, OpDetect, assets.DetectSystemPrompt,
		[]openai.ChatMessagePart{part, textPart("Classify this image.")}, true)
	if err != nil {
		return nil, err
	}
	return parseDetections(raw)
}
