package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/civic-sense/inference-services/internal/assets"
	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/media"
)

// GeminiModels serves all three model roles from one Gemini model.
type GeminiModels struct {
	client *genai.Client
	model  string
	labels []string
}

// NewGeminiModels creates a Gemini API client.
func NewGeminiModels(ctx context.Context, apiKey, model string, labels []string) (*GeminiModels, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}
	return newGeminiModels(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, labels)
}

func newGeminiModels(ctx context.Context, cfg *genai.ClientConfig, model string, labels []string) (*GeminiModels, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiModels{client: client, model: model, labels: labels}, nil
}

// ModelName returns the Gemini model ID in use.
func (g *GeminiModels) ModelName() string { return g.model }

func (g *GeminiModels) generate(ctx context.Context, op, system string, parts []*genai.Part, jsonOut bool) (text string, err error) {
	start := time.Now()
	defer func() { observe(ProviderGemini, op, g.model, start, err) }()

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	if jsonOut {
		config.ResponseMIMEType = "application/json"
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini %s failed: %w", op, err)
	}
	text = strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini %s returned no text", op)
	}
	return text, nil
}

func imagePart(img image.Image) (*genai.Part, error) {
	data, err := media.EncodeJPEG(img, media.DefaultMaxDimension)
	if err != nil {
		return nil, err
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data}}, nil
}

// Classify implements Classifier.
func (g *GeminiModels) Classify(ctx context.Context, text string) (Classification, error) {
	raw, err := g.generate(ctx, OpClassify, assets.ClassifySystemPrompt,
		[]*genai.Part{{Text: assets.RenderClassifyPrompt(text, g.labels)}}, true)
	if err != nil {
		return Classification{}, err
	}
	return parseClassification(raw)
}

// Caption implements Captioner. The result starts with caption.Prompt, the
// same echo a conditioned captioning model produces.
func (g *GeminiModels) Caption(ctx context.Context, img image.Image) (string, error) {
	part, err := imagePart(img)
	if err != nil {
		return "", err
	}
	return g.generate(ctx, OpCaption, assets.CaptionSystemPrompt,
		[]*genai.Part{part, {Text: assets.RenderCaptionPrompt(caption.Prompt)}}, false)
}

// Detect implements Detector.
func (g *GeminiModels) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	part, err := imagePart(img)
	if err != nil {
		return nil, err
	}
	raw, err := g.generate(ctx, OpDetect, assets.DetectSystemPrompt,
		[]*genai.Part{part, {Text: "Classify this image."}}, true)
	if err != nil {
		return nil, err
	}
	return parseDetections(raw)
}
