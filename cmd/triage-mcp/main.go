package main

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/inference"
	"github.com/civic-sense/inference-services/internal/logging"
	"github.com/civic-sense/inference-services/internal/metrics"
)

const serviceName = "triage-mcp"

var (
	providerFlag string
	offlineFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "MCP server exposing complaint triage tools over stdio",
	Long: `triage-mcp lets MCP clients (editors, agents) use the complaint triage
pipeline. Tools:

  triage_complaint   classify complaint text and apply the priority rules
  correct_priority   apply the priority rules to an existing label
  clean_caption      turn a raw image caption into complaint text

With --offline no model is constructed and triage_complaint is not offered.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVar(&providerFlag, "provider", "", "Model provider: gemini, openai or http (overrides MODEL_PROVIDER)")
	rootCmd.Flags().BoolVar(&offlineFlag, "offline", false, "Only offer tools that need no model")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	envErr := config.LoadDotEnv()
	// stdout carries the protocol.
	logging.Init()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Failed to load .env file")
	}
	metrics.SetOutput(os.Stderr)
	metrics.SetService(serviceName)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tools := &toolset{}
	if !offlineFlag {
		if providerFlag != "" {
			os.Setenv("MODEL_PROVIDER", providerFlag)
		}
		classifier, err := loadClassifier(ctx)
		if err != nil {
			return err
		}
		tools.classifier = classifier
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serviceName, Version: "v1.0.0"}, nil)
	tools.register(server)

	logging.NewStartupLogger(serviceName).
		Mode("stdio").
		Feature("triage_complaint", tools.classifier != nil).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}

func loadClassifier(ctx context.Context) (inference.Classifier, error) {
	cfg, err := config.Load(serviceName, config.PortComplaint)
	if err != nil {
		return nil, err
	}
	var labels []string
	if cfg.LabelMappingPath != "" {
		if labels, err = inference.LoadLabels(cfg.LabelMappingPath); err != nil {
			return nil, err
		}
	}
	models, err := inference.New(ctx, inference.Options{
		Provider:       cfg.Provider,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		ModelServerURL: cfg.ModelServerURL,
		Labels:         labels,
	})
	if err != nil {
		return nil, err
	}
	return models.Classifier, nil
}
