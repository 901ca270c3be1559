// Package serve is the shared entry point of the service binaries: it
// resolves configuration, builds the models once and runs the HTTP API
// locally or behind API Gateway in Lambda.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/civic-sense/inference-services/internal/config"
	"github.com/civic-sense/inference-services/internal/httpapi"
	"github.com/civic-sense/inference-services/internal/inference"
	"github.com/civic-sense/inference-services/internal/lambdaboot"
	"github.com/civic-sense/inference-services/internal/logging"
	"github.com/civic-sense/inference-services/internal/media"
	"github.com/civic-sense/inference-services/internal/metrics"
	"github.com/civic-sense/inference-services/internal/s3util"
)

// Binary describes one service executable.
type Binary struct {
	Service     httpapi.Service
	DefaultPort int
	Short       string
	Long        string
}

// needsVideo reports whether the service samples frames from uploaded video.
func (b Binary) needsVideo() bool {
	return b.Service == httpapi.ServiceVideoAnalysis || b.Service == httpapi.ServiceFakeDetection
}

// Command returns the cobra root command for b.
func Command(b Binary) *cobra.Command {
	var (
		portFlag     int
		providerFlag string
	)
	cmd := &cobra.Command{
		Use:          string(b.Service),
		Short:        b.Short,
		Long:         b.Long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				os.Setenv("PORT", fmt.Sprint(portFlag))
			}
			if cmd.Flags().Changed("provider") {
				os.Setenv("MODEL_PROVIDER", providerFlag)
			}
			return Run(cmd.Context(), b)
		},
	}
	cmd.Flags().IntVar(&portFlag, "port", b.DefaultPort, "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&providerFlag, "provider", inference.ProviderGemini, "Model provider: gemini, openai or http (overrides MODEL_PROVIDER)")
	return cmd
}

// Run starts the service and blocks until it stops.
func Run(ctx context.Context, b Binary) error {
	if ctx == nil {
		ctx = context.Background()
	}
	initStart := time.Now()
	envErr := config.LoadDotEnv()
	logging.Init()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Failed to load .env file")
	}
	metrics.SetService(string(b.Service))

	cfg, err := config.Load(string(b.Service), b.DefaultPort)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	startup := logging.NewStartupLogger(string(b.Service)).
		Port(cfg.Port).
		Config("provider", cfg.Provider).
		Feature("rate_limit", cfg.RateLimitRPS > 0)

	var s3Source *s3util.Source
	if lambdaboot.InLambda() {
		startup.Mode("lambda")
		s3Source, err = lambdaBoot(ctx, cfg, startup)
		if err != nil {
			return err
		}
	} else {
		startup.Mode("local")
	}

	var labels []string
	if cfg.LabelMappingPath != "" {
		labels, err = inference.LoadLabels(cfg.LabelMappingPath)
		if err != nil {
			return err
		}
		startup.Config("labels", fmt.Sprint(len(labels)))
	}

	models, err := inference.New(ctx, modelOptions(cfg, labels))
	if err != nil {
		return fmt.Errorf("failed to initialize models: %w", err)
	}
	startup.Model(models.Provider, modelName(cfg))

	opts := httpapi.Options{
		Models:         models,
		S3:             s3Source,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      cfg.RateLimitRPS,
		RateBurst:      cfg.RateLimitBurst,
	}
	if b.needsVideo() {
		backend, err := media.NewFFmpegBackend()
		if err != nil {
			return err
		}
		opts.Sampler = &media.Sampler{
			Stager:  &media.Stager{Dir: cfg.MediaTempDir, Prefix: string(b.Service)},
			Backend: backend,
		}
		startup.Config("media_temp_dir", cfg.MediaTempDir).
			Feature("s3_uploads", s3Source != nil)
	}

	handler, err := httpapi.NewServer(opts).Handler(b.Service)
	if err != nil {
		return err
	}
	startup.InitDuration(time.Since(initStart)).Log()

	if lambdaboot.InLambda() {
		adapter := httpadapter.NewV2(handler)
		lambda.Start(adapter.ProxyWithContext)
		return nil
	}
	return listen(ctx, cfg.Port, handler)
}

// lambdaBoot fetches the provider key from SSM when the environment lacks
// it and builds the S3 media source.
func lambdaBoot(ctx context.Context, cfg *config.Config, startup *logging.StartupLogger) (*s3util.Source, error) {
	awsCfg, err := lambdaboot.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Provider != inference.ProviderHTTP && cfg.APIKey() == "" {
		key, err := lambdaboot.LoadAPIKey(ctx, lambdaboot.NewSSM(awsCfg), cfg.SSMAPIKeyParam)
		if err != nil {
			return nil, err
		}
		cfg.SetAPIKey(key)
		startup.SSMParam("api_key", cfg.SSMAPIKeyParam)
	}

	src := lambdaboot.NewS3Source(awsCfg, cfg.MediaBucket, cfg.MaxUploadBytes)
	if src != nil {
		startup.S3Bucket("media", cfg.MediaBucket)
	}
	return src, nil
}

func modelOptions(cfg *config.Config, labels []string) inference.Options {
	return inference.Options{
		Provider:       cfg.Provider,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		ModelServerURL: cfg.ModelServerURL,
		Labels:         labels,
	}
}

func modelName(cfg *config.Config) string {
	switch cfg.Provider {
	case inference.ProviderOpenAI:
		return cfg.OpenAIModel
	case inference.ProviderHTTP:
		return cfg.ModelServerURL
	default:
		return cfg.GeminiModel
	}
}

// listen serves until SIGINT/SIGTERM, then drains for up to ten seconds.
func listen(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
