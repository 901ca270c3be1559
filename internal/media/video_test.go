package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// stubBackend records how the sampler drives the capture.
type stubBackend struct {
	mu       sync.Mutex
	openErr  error
	frames   int
	frame    *BGRFrame
	readErr  error
	opened   []string
	captures []*stubCapture
}

type stubCapture struct {
	frames    int
	frame     *BGRFrame
	readErr   error
	readIndex int
	reads     int
	closed    bool
	closedAt  int
}

func (b *stubBackend) Open(_ context.Context, path string) (Capture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("staged file missing during open: %w", err)
	}
	b.opened = append(b.opened, path)
	if b.openErr != nil {
		return nil, b.openErr
	}
	c := &stubCapture{frames: b.frames, frame: b.frame, readErr: b.readErr, readIndex: -1}
	b.captures = append(b.captures, c)
	return c, nil
}

func (c *stubCapture) FrameCount() int { return c.frames }

func (c *stubCapture) ReadFrame(_ context.Context, index int) (*BGRFrame, error) {
	c.reads++
	c.readIndex = index
	if c.closed {
		return nil, errors.New("read after close")
	}
	return c.frame, c.readErr
}

func (c *stubCapture) Close() error {
	c.closed = true
	c.closedAt = c.reads
	return nil
}

func newTestSampler(t *testing.T, backend VideoBackend) (*Sampler, string) {
	t.Helper()
	dir := t.TempDir()
	return &Sampler{Stager: &Stager{Dir: dir, Prefix: "video"}, Backend: backend}, dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read staging dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected staging dir to be empty, found %v", names)
	}
}

func TestSample_Success(t *testing.T) {
	backend := &stubBackend{
		frames: 101,
		// 2x1 frame: pure blue then pure red, in BGR order.
		frame: &BGRFrame{Width: 2, Height: 1, Pix: []byte{255, 0, 0, 0, 0, 255}},
	}
	s, dir := newTestSampler(t, backend)

	frame, err := s.Sample(context.Background(), strings.NewReader("fake video bytes"), "clip.MP4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Index != 50 {
		t.Errorf("expected frame index 50, got %d", frame.Index)
	}

	c := backend.captures[0]
	if c.readIndex != 50 {
		t.Errorf("expected read at index 50, got %d", c.readIndex)
	}
	if !c.closed || c.closedAt != 1 {
		t.Errorf("expected capture closed right after one read, closed=%v after %d reads", c.closed, c.closedAt)
	}
	if !strings.HasSuffix(backend.opened[0], ".mp4") {
		t.Errorf("expected staged path to keep .mp4 extension, got %s", backend.opened[0])
	}

	r, g, b, _ := frame.Image.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0xffff {
		t.Errorf("expected first pixel blue, got r=%d g=%d b=%d", r, g, b)
	}
	r, g, b, _ = frame.Image.At(1, 0).RGBA()
	if r != 0xffff || g != 0 || b != 0 {
		t.Errorf("expected second pixel red, got r=%d g=%d b=%d", r, g, b)
	}

	assertDirEmpty(t, dir)
}

func TestSample_OpenFailure(t *testing.T) {
	backend := &stubBackend{openErr: errors.New("moov atom not found")}
	s, dir := newTestSampler(t, backend)

	_, err := s.Sample(context.Background(), strings.NewReader("garbage"), "clip.mp4")
	if !apperr.Is(err, apperr.MediaUnreadable) {
		t.Fatalf("expected MediaUnreadable, got %v", err)
	}
	if apperr.MessageOf(err) != "Could not open video" {
		t.Errorf("expected 'Could not open video', got %q", apperr.MessageOf(err))
	}
	if len(backend.opened) != 1 {
		t.Errorf("expected one open attempt, got %d", len(backend.opened))
	}
	assertDirEmpty(t, dir)
}

func TestSample_ZeroFrames(t *testing.T) {
	backend := &stubBackend{frames: 0, frame: &BGRFrame{Width: 1, Height: 1, Pix: []byte{1, 2, 3}}}
	s, dir := newTestSampler(t, backend)

	_, err := s.Sample(context.Background(), strings.NewReader("empty"), "clip.mp4")
	if !apperr.Is(err, apperr.FrameDecodeFailed) {
		t.Fatalf("expected FrameDecodeFailed, got %v", err)
	}
	if apperr.MessageOf(err) != "Could not read frame from video" {
		t.Errorf("unexpected message %q", apperr.MessageOf(err))
	}
	if !backend.captures[0].closed {
		t.Error("expected capture to be closed")
	}
	assertDirEmpty(t, dir)
}

func TestSample_ReadFailure(t *testing.T) {
	backend := &stubBackend{frames: 10, readErr: errors.New("corrupt packet")}
	s, dir := newTestSampler(t, backend)

	_, err := s.Sample(context.Background(), strings.NewReader("corrupt"), "clip.mp4")
	if !apperr.Is(err, apperr.FrameDecodeFailed) {
		t.Fatalf("expected FrameDecodeFailed, got %v", err)
	}
	if backend.captures[0].readIndex != 5 {
		t.Errorf("expected read at index 5, got %d", backend.captures[0].readIndex)
	}
	if !backend.captures[0].closed {
		t.Error("expected capture to be closed")
	}
	assertDirEmpty(t, dir)
}

func TestSample_NilFrame(t *testing.T) {
	backend := &stubBackend{frames: 3}
	s, dir := newTestSampler(t, backend)

	_, err := s.Sample(context.Background(), strings.NewReader("x"), "clip.mp4")
	if !apperr.Is(err, apperr.FrameDecodeFailed) {
		t.Fatalf("expected FrameDecodeFailed, got %v", err)
	}
	assertDirEmpty(t, dir)
}

func TestSample_TruncatedFrame(t *testing.T) {
	backend := &stubBackend{frames: 2, frame: &BGRFrame{Width: 2, Height: 2, Pix: []byte{1, 2, 3}}}
	s, dir := newTestSampler(t, backend)

	_, err := s.Sample(context.Background(), strings.NewReader("x"), "clip.mp4")
	if !apperr.Is(err, apperr.FrameDecodeFailed) {
		t.Fatalf("expected FrameDecodeFailed, got %v", err)
	}
	assertDirEmpty(t, dir)
}

func TestSample_ConcurrentRequestsUseDistinctFiles(t *testing.T) {
	backend := &stubBackend{frames: 1, frame: &BGRFrame{Width: 1, Height: 1, Pix: []byte{0, 0, 0}}}
	s, dir := newTestSampler(t, backend)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := bytes.Repeat([]byte{byte(i)}, 64)
			if _, err := s.Sample(context.Background(), bytes.NewReader(body), "v.mp4"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, p := range backend.opened {
		if seen[p] {
			t.Errorf("staged path reused: %s", p)
		}
		seen[p] = true
	}
	assertDirEmpty(t, dir)
}

// failingReader yields some bytes and then err.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSample_StageErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind apperr.Kind
	}{
		{
			name:     "size limit keeps its kind",
			err:      apperr.New(apperr.PayloadTooLarge, "source", "Video too large"),
			wantKind: apperr.PayloadTooLarge,
		},
		{
			name:     "other read failures",
			err:      errors.New("connection reset"),
			wantKind: apperr.ProcessingFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{frames: 10}
			s, dir := newTestSampler(t, backend)

			_, err := s.Sample(context.Background(), &failingReader{data: []byte("partial"), err: tt.err}, "clip.mp4")
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("expected kind %v, got %v (%v)", tt.wantKind, got, err)
			}
			if len(backend.opened) != 0 {
				t.Errorf("expected backend not to be opened, got %v", backend.opened)
			}
			assertDirEmpty(t, dir)
		})
	}
}

func TestMiddleFrame(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{101, 50},
		{100, 50},
		{1, 0},
		{2, 1},
		{0, 0},
		{-3, 0},
	}
	for _, tt := range tests {
		if got := MiddleFrame(tt.total); got != tt.want {
			t.Errorf("MiddleFrame(%d): expected %d, got %d", tt.total, tt.want, got)
		}
	}
}
