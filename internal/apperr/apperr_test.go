package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no file", New(NoFileUploaded, "caption", "No image uploaded"), http.StatusBadRequest},
		{"unreadable", New(MediaUnreadable, "sample", "Could not open video"), http.StatusBadRequest},
		{"decode failed", New(FrameDecodeFailed, "sample", "Could not read frame from video"), http.StatusInternalServerError},
		{"malformed label", New(MalformedLabel, "triage", "bad label"), http.StatusInternalServerError},
		{"rate limited", New(RateLimited, "", "Too many requests"), http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("outer: %w", New(MediaUnreadable, "", "Could not open video")), http.StatusBadRequest},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got)
			}
		})
	}
}

func TestMessageOf_HidesUnclassified(t *testing.T) {
	if got := MessageOf(errors.New("/tmp/secret path exploded")); got != "Processing failed" {
		t.Errorf("expected generic message, got %q", got)
	}
	if got := MessageOf(New(NoFileUploaded, "", "No video uploaded")); got != "No video uploaded" {
		t.Errorf("expected 'No video uploaded', got %q", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("ffprobe exited 1")
	err := Wrap(MediaUnreadable, "open", "Could not open video", cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if !Is(err, MediaUnreadable) {
		t.Error("expected Is(MediaUnreadable) to be true")
	}
	if Is(err, FrameDecodeFailed) {
		t.Error("expected Is(FrameDecodeFailed) to be false")
	}
}
