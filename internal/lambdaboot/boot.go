// Package lambdaboot holds the cold-start wiring used when a service runs
// inside AWS Lambda: AWS config, the model API key from SSM and the S3
// media source.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/civic-sense/inference-services/internal/s3util"
)

// InLambda reports whether the process is running inside AWS Lambda.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// LoadAWSConfig loads the default AWS config chain.
func LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg, nil
}

// GetParameterAPI is the subset of *ssm.Client used here.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadAPIKey reads a SecureString parameter holding the model provider key.
func LoadAPIKey(ctx context.Context, client GetParameterAPI, param string) (string, error) {
	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s from SSM: %w", param, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", param)
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Model API key loaded from SSM")
	return aws.ToString(out.Parameter.Value), nil
}

// NewSSM returns an SSM client for cfg.
func NewSSM(cfg aws.Config) *ssm.Client {
	return ssm.NewFromConfig(cfg)
}

// NewS3Source returns a media source for bucket, or nil when bucket is empty.
func NewS3Source(cfg aws.Config, bucket string, maxBytes int64) *s3util.Source {
	if bucket == "" {
		return nil
	}
	return &s3util.Source{Client: s3.NewFromConfig(cfg), Bucket: bucket, MaxBytes: maxBytes}
}
