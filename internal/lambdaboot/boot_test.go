package lambdaboot

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value   *string
	err     error
	gotName string
	decrypt bool
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gotName = aws.ToString(in.Name)
	f.decrypt = aws.ToBool(in.WithDecryption)
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: f.value}}, nil
}

func TestLoadAPIKey(t *testing.T) {
	client := &fakeSSM{value: aws.String("secret-key")}
	key, err := LoadAPIKey(context.Background(), client, "/civic-sense/prod/model-api-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "secret-key" {
		t.Errorf("expected secret-key, got %q", key)
	}
	if client.gotName != "/civic-sense/prod/model-api-key" || !client.decrypt {
		t.Errorf("expected decrypted read of the param, got name=%s decrypt=%v", client.gotName, client.decrypt)
	}
}

func TestLoadAPIKey_Errors(t *testing.T) {
	if _, err := LoadAPIKey(context.Background(), &fakeSSM{err: errors.New("AccessDenied")}, "/p"); err == nil {
		t.Error("expected error for SSM failure")
	}
	if _, err := LoadAPIKey(context.Background(), &fakeSSM{value: aws.String("")}, "/p"); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestInLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if InLambda() {
		t.Error("expected false outside Lambda")
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "caption-api")
	if !InLambda() {
		t.Error("expected true inside Lambda")
	}
}

func TestNewS3Source_EmptyBucket(t *testing.T) {
	if NewS3Source(aws.Config{}, "", 0) != nil {
		t.Error("expected nil source without a bucket")
	}
}
