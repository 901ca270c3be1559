// Package s3util lets the video endpoints read uploads that clients placed
// in S3 instead of sending them inline, which keeps large videos under API
// Gateway's payload limit. Objects are streamed straight into the stager.
package s3util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// GetObjectAPI is the subset of *s3.Client used here.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads media objects from one bucket.
type Source struct {
	Client GetObjectAPI
	Bucket string
	// MaxBytes rejects larger objects before download; zero disables the check.
	MaxBytes int64
}

// ValidKey reports whether key is a plain relative object key.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || len(key) > 1024 {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Open starts streaming key. The caller closes the body. The returned name is
// the key's base name, used to pick a file extension.
func (s *Source) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	const op = "s3util.Open"
	if !ValidKey(key) {
		return nil, "", apperr.New(apperr.InvalidRequest, op, "Invalid s3_key")
	}

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.Bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", apperr.Wrap(apperr.InvalidRequest, op, "Video not found", err)
		}
		return nil, "", apperr.Wrap(apperr.ProcessingFailed, op, "Could not fetch video", fmt.Errorf("S3 GetObject: %w", err))
	}
	if s.MaxBytes > 0 && out.ContentLength != nil && *out.ContentLength > s.MaxBytes {
		out.Body.Close()
		return nil, "", apperr.New(apperr.PayloadTooLarge, op, MsgVideoTooLarge)
	}

	log.Debug().Str("bucket", s.Bucket).Str("key", key).Msg("Streaming video from S3")
	body := out.Body
	if s.MaxBytes > 0 {
		body = &limitedBody{rc: out.Body, remaining: s.MaxBytes}
	}
	return body, path.Base(key), nil
}

// MsgVideoTooLarge is returned for objects over MaxBytes.
const MsgVideoTooLarge = "Video too large"

// limitedBody fails the read that would go past MaxBytes, covering objects
// whose size was not reported up front.
type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, apperr.New(apperr.PayloadTooLarge, "s3util.Read", MsgVideoTooLarge)
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.rc.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n + int(l.remaining), apperr.New(apperr.PayloadTooLarge, "s3util.Read", MsgVideoTooLarge)
	}
	return n, err
}

func (l *limitedBody) Close() error {
	return l.rc.Close()
}
