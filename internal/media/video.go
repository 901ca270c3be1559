// Package media stages uploads on disk, samples a representative frame from
// videos and decodes images for the vision models.
package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// Caller-facing messages for video failures.
const (
	MsgCouldNotOpenVideo = "Could not open video"
	MsgCouldNotReadFrame = "Could not read frame from video"
)

// BGRFrame is a decoded frame in packed 8-bit B,G,R order.
type BGRFrame struct {
	Width  int
	Height int
	Pix    []byte
}

// RGBA converts the frame to RGB channel order.
func (f *BGRFrame) RGBA() (*image.RGBA, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return nil, fmt.Errorf("frame has %d bytes, want %d", len(f.Pix), want)
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i+2]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// Capture is an opened video source.
type Capture interface {
	FrameCount() int
	ReadFrame(ctx context.Context, index int) (*BGRFrame, error)
	Close() error
}

// VideoBackend opens video files for frame access.
type VideoBackend interface {
	Open(ctx context.Context, path string) (Capture, error)
}

// Frame is the sampled representative frame. It does not reference the
// staged file it came from.
type Frame struct {
	Image *image.RGBA
	Index int
}

// Sampler extracts the temporal midpoint frame from uploaded videos.
type Sampler struct {
	Stager  *Stager
	Backend VideoBackend
}

// MiddleFrame returns the zero-based index of the temporal midpoint.
func MiddleFrame(total int) int {
	if total <= 0 {
		return 0
	}
	return total / 2
}

// Sample stages the upload, decodes its middle frame and removes the staged
// file before returning, whatever the outcome.
func (s *Sampler) Sample(ctx context.Context, r io.Reader, filename string) (*Frame, error) {
	const op = "media.Sample"

	staged, err := s.Stager.Stage(r, filepath.Ext(filename))
	if err != nil {
		// Size limits enforced by the source keep their own status.
		if apperr.Is(err, apperr.PayloadTooLarge) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ProcessingFailed, op, "Failed to store video", err)
	}
	defer staged.Release()

	capture, err := s.Backend.Open(ctx, staged.Path)
	if err != nil {
		return nil, apperr.Wrap(apperr.MediaUnreadable, op, MsgCouldNotOpenVideo, err)
	}

	total := capture.FrameCount()
	index := MiddleFrame(total)

	var bgr *BGRFrame
	var readErr error
	if total > 0 {
		bgr, readErr = capture.ReadFrame(ctx, index)
	} else {
		readErr = fmt.Errorf("video reports %d frames", total)
	}
	if err := capture.Close(); err != nil {
		log.Warn().Err(err).Str("path", staged.Path).Msg("Failed to close video capture")
	}
	if readErr == nil && bgr == nil {
		readErr = fmt.Errorf("no frame returned at index %d", index)
	}
	if readErr != nil {
		return nil, apperr.Wrap(apperr.FrameDecodeFailed, op, MsgCouldNotReadFrame, readErr)
	}

	// The frame owns its pixels now; drop the file before converting.
	staged.Release()

	img, err := bgr.RGBA()
	if err != nil {
		return nil, apperr.Wrap(apperr.FrameDecodeFailed, op, MsgCouldNotReadFrame, err)
	}

	log.Debug().
		Int("total_frames", total).
		Int("index", index).
		Int("width", bgr.Width).
		Int("height", bgr.Height).
		Msg("Representative frame sampled")

	return &Frame{Image: img, Index: index}, nil
}
