package s3util

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/civic-sense/inference-services/internal/apperr"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	gotKey  string
	// noLength omits ContentLength, as for chunked responses.
	noLength bool
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[f.gotKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}
	if !f.noLength {
		out.ContentLength = aws.Int64(int64(len(body)))
	}
	return out, nil
}

func TestOpen_Streams(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"uploads/abc/clip.mov": "video-bytes"}}
	src := &Source{Client: client, Bucket: "media"}

	body, name, err := src.Open(context.Background(), "uploads/abc/clip.mov")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()
	if name != "clip.mov" {
		t.Errorf("expected name clip.mov, got %s", name)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "video-bytes" {
		t.Errorf("unexpected body %q", data)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeS3
		max    int64
		key    string
		kind   apperr.Kind
	}{
		{"missing object", &fakeS3{objects: map[string]string{}}, 0, "x.mp4", apperr.InvalidRequest},
		{"traversal", &fakeS3{}, 0, "../secrets.mp4", apperr.InvalidRequest},
		{"absolute", &fakeS3{}, 0, "/x.mp4", apperr.InvalidRequest},
		{"too large", &fakeS3{objects: map[string]string{"big.mp4": "0123456789"}}, 5, "big.mp4", apperr.PayloadTooLarge},
		{"service error", &fakeS3{err: errors.New("throttled")}, 0, "x.mp4", apperr.ProcessingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &Source{Client: tt.client, Bucket: "media", MaxBytes: tt.max}
			_, _, err := src.Open(context.Background(), tt.key)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.KindOf(err); got != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, got)
			}
		})
	}
}

func TestOpen_UnreportedLengthIsCapped(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		max      int64
		wantErr  bool
		wantRead string
	}{
		{name: "over limit", body: "0123456789", max: 5, wantErr: true, wantRead: "01234"},
		{name: "exactly at limit", body: "01234", max: 5, wantRead: "01234"},
		{name: "under limit", body: "012", max: 5, wantRead: "012"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeS3{objects: map[string]string{"clip.mp4": tt.body}, noLength: true}
			src := &Source{Client: client, Bucket: "media", MaxBytes: tt.max}

			body, _, err := src.Open(context.Background(), "clip.mp4")
			if err != nil {
				t.Fatalf("unexpected open error: %v", err)
			}
			defer body.Close()

			got, err := io.ReadAll(body)
			if tt.wantErr {
				if !apperr.Is(err, apperr.PayloadTooLarge) {
					t.Errorf("expected PayloadTooLarge, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected read error: %v", err)
			}
			if string(got) != tt.wantRead {
				t.Errorf("expected to read %q, got %q", tt.wantRead, got)
			}
		})
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"a/b/c.mp4", true},
		{"clip.mp4", true},
		{"", false},
		{"/abs.mp4", false},
		{"a/../b.mp4", false},
	}
	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.want {
			t.Errorf("ValidKey(%q): expected %v, got %v", tt.key, tt.want, got)
		}
	}
}
