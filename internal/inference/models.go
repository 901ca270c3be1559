// Package inference wraps the pretrained models behind three narrow
// interfaces and provides Gemini, OpenAI and model-server implementations.
package inference

import (
	"context"
	"fmt"
	"image"
)

// Classification is the raw text classifier output. Label has the form
// "<department> | <priority>".
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Detection is one ranked label from the image classifier.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier labels complaint text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Captioner describes an image in natural language.
type Captioner interface {
	Caption(ctx context.Context, img image.Image) (string, error)
}

// Detector scores an image as human-made or machine-generated.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Models is the read-only set of model handles shared by all requests.
// A service only needs the handles its routes use; the rest may be nil.
type Models struct {
	Provider   string
	Classifier Classifier
	Captioner  Captioner
	Detector   Detector
}

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

// Options configure model construction.
type Options struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	ModelServerURL string

	// Labels constrains prompted classifiers to the model's label space.
	Labels []string
}

// New constructs the models for the configured provider.
func New(ctx context.Context, opts Options) (Models, error) {
	switch opts.Provider {
	case ProviderGemini, "":
		g, err := NewGeminiModels(ctx, opts.GeminiAPIKey, opts.GeminiModel, opts.Labels)
		if err != nil {
			return Models{}, err
		}
		return Models{Provider: ProviderGemini, Classifier: g, Captioner: g, Detector: g}, nil
	case ProviderOpenAI:
		o, err := NewOpenAIModels(opts.OpenAIAPIKey, opts.OpenAIModel, opts.OpenAIBaseURL, opts.Labels)
		if err != nil {
			return Models{}, err
		}
		return Models{Provider: ProviderOpenAI, Classifier: o, Captioner: o, Detector: o}, nil
	case ProviderHTTP:
		h, err := NewHTTPModels(opts.ModelServerURL, nil)
		if err != nil {
			return Models{}, err
		}
		return Models{Provider: ProviderHTTP, Classifier: h, Captioner: h, Detector: h}, nil
	default:
		return Models{}, fmt.Errorf("unknown model provider %q", opts.Provider)
	}
}
