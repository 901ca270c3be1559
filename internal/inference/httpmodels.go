package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/media"
)

// maxResponseBytes caps how much of a model server response is read.
const maxResponseBytes = 4 << 20

// GenerationParams are the beam-search settings sent with caption requests.
type GenerationParams struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	MinNewTokens      int     `json:"min_new_tokens"`
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	EarlyStopping     bool    `json:"early_stopping"`
}

// DefaultGeneration matches the captioner's tuned settings.
var DefaultGeneration = GenerationParams{
	MaxNewTokens:      80,
	MinNewTokens:      20,
	NumBeams:          3,
	RepetitionPenalty: 1.2,
	EarlyStopping:     true,
}

// HTTPModels talks to a self-hosted model server that exposes
// POST /classify, /caption and /detect. Request bodies are gzip-compressed
// JSON; images travel as base64 JPEG.
type HTTPModels struct {
	baseURL    *url.URL
	client     *http.Client
	Generation GenerationParams
}

// NewHTTPModels validates baseURL. A nil client gets a default with no
// overall timeout; inference time is bounded by the request context.
func NewHTTPModels(baseURL string, client *http.Client) (*HTTPModels, error) {
	if baseURL == "" {
		return nil, errors.New("MODEL_SERVER_URL is required for the http provider")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid model server URL %q", baseURL)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPModels{baseURL: u, client: client, Generation: DefaultGeneration}, nil
}

// ModelName identifies the server for logs.
func (h *HTTPModels) ModelName() string { return h.baseURL.String() }

type classifyRequest struct {
	Text string `json:"text"`
}

type imageRequest struct {
	Image      string            `json:"image"`
	Prompt     string            `json:"prompt,omitempty"`
	Generation *GenerationParams `json:"generation,omitempty"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// Classify implements Classifier.
func (h *HTTPModels) Classify(ctx context.Context, text string) (Classification, error) {
	var c Classification
	if err := h.post(ctx, OpClassify, classifyRequest{Text: text}, &c); err != nil {
		return Classification{}, err
	}
	return c, nil
}

// Caption implements Captioner.
func (h *HTTPModels) Caption(ctx context.Context, img image.Image) (string, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return "", err
	}
	gen := h.Generation
	var resp captionResponse
	if err := h.post(ctx, OpCaption, imageRequest{Image: encoded, Prompt: caption.Prompt, Generation: &gen}, &resp); err != nil {
		return "", err
	}
	return resp.Caption, nil
}

// Detect implements Detector. Scores come back in the server's order.
func (h *HTTPModels) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}
	var dets []Detection
	if err := h.post(ctx, OpDetect, imageRequest{Image: encoded}, &dets); err != nil {
		return nil, err
	}
	return dets, nil
}

func encodeImage(img image.Image) (string, error) {
	data, err := media.EncodeJPEG(img, media.DefaultMaxDimension)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (h *HTTPModels) post(ctx context.Context, op string, in, out any) (err error) {
	start := time.Now()
	defer func() { observe(ProviderHTTP, op, h.baseURL.Host, start, err) }()

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if err := json.NewEncoder(zw).Encode(in); err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress %s request: %w", op, err)
	}

	endpoint := h.baseURL.JoinPath(op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("model server %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return fmt.Errorf("model server %s returned %d: %s", op, resp.StatusCode, snippet)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
