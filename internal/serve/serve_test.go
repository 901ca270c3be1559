package serve

import (
	"testing"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
)

func TestCommand_Flags(t *testing.T) {
	cmd := Command(Binary{Service: httpapi.ServiceCaption, DefaultPort: config.PortCaption})

	if cmd.Use != "caption-api" {
		t.Errorf("expected use caption-api, got %q", cmd.Use)
	}
	port := cmd.Flags().Lookup("port")
	if port == nil || port.DefValue != "5002" {
		t.Fatalf("expected --port defaulting to 5002, got %+v", port)
	}
	if cmd.Flags().Lookup("provider") == nil {
		t.Error("expected --provider flag")
	}
}

func TestBinary_NeedsVideo(t *testing.T) {
	tests := []struct {
		svc  httpapi.Service
		want bool
	}{
		{httpapi.ServiceComplaint, false},
		{httpapi.ServiceCaption, false},
		{httpapi.ServiceVideoAnalysis, true},
		{httpapi.ServiceFakeDetection, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.svc), func(t *testing.T) {
			if got := (Binary{Service: tt.svc}).needsVideo(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestModelName(t *testing.T) {
	cfg := &config.Config{
		GeminiModel:    "gemini-x",
		OpenAIModel:    "gpt-x",
		ModelServerURL: "http://models:8000",
	}
	tests := []struct {
		provider string
		want     string
	}{
		{"gemini", "gemini-x"},
		{"openai", "gpt-x"},
		{"http", "http://models:8000"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg.Provider = tt.provider
			if got := modelName(cfg); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestModelOptions(t *testing.T) {
	cfg := &config.Config{Provider: "openai", OpenAIAPIKey: "k", OpenAIModel: "m", OpenAIBaseURL: "http://proxy"}
	opts := modelOptions(cfg, []string{"Water Department | Low"})

	if opts.Provider != "openai" || opts.OpenAIAPIKey != "k" || opts.OpenAIBaseURL != "http://proxy" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if len(opts.Labels) != 1 {
		t.Errorf("expected labels to be passed through, got %v", opts.Labels)
	}
}
