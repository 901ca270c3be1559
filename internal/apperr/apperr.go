// Package apperr defines the error taxonomy shared by the inference services
// and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	// ProcessingFailed is the catch-all for model or I/O failures.
	ProcessingFailed Kind = iota
	NoFileUploaded
	MediaUnreadable
	FrameDecodeFailed
	MalformedLabel
	InvalidRequest
	MethodNotAllowed
	PayloadTooLarge
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case NoFileUploaded:
		return "NoFileUploaded"
	case MediaUnreadable:
		return "MediaUnreadable"
	case FrameDecodeFailed:
		return "FrameDecodeFailed"
	case MalformedLabel:
		return "MalformedLabel"
	case InvalidRequest:
		return "InvalidRequest"
	case MethodNotAllowed:
		return "MethodNotAllowed"
	case PayloadTooLarge:
		return "PayloadTooLarge"
	case RateLimited:
		return "RateLimited"
	default:
		return "ProcessingFailed"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case NoFileUploaded, MediaUnreadable, InvalidRequest:
		return http.StatusBadRequest
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to callers; Err
// carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap returns an Error of the given kind that wraps err.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or ProcessingFailed for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ProcessingFailed
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	return KindOf(err).Status()
}

// MessageOf returns the caller-facing message for err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Processing failed"
}
