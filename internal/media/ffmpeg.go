package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FFmpegBackend opens videos with ffprobe and decodes single frames with
// ffmpeg. Both binaries must be on PATH (bundled in the container image).
type FFmpegBackend struct {
	FFprobePath string
	FFmpegPath  string
}

// NewFFmpegBackend resolves ffprobe and ffmpeg from PATH.
func NewFFmpegBackend() (*FFmpegBackend, error) {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &FFmpegBackend{FFprobePath: ffprobe, FFmpegPath: ffmpeg}, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	NbFrames      string `json:"nb_frames"`
	NbReadPackets string `json:"nb_read_packets"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	RFrameRate    string `json:"r_frame_rate"`
	Duration      string `json:"duration"`
}

// Open probes the first video stream. Files without a decodable video
// stream fail here.
func (b *FFmpegBackend) Open(ctx context.Context, path string) (Capture, error) {
	cmd := exec.CommandContext(ctx, b.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=codec_name,width,height,nb_frames,nb_read_packets,avg_frame_rate,r_frame_rate,duration",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	stream, err := parseProbe(out)
	if err != nil {
		return nil, err
	}

	c := &ffmpegCapture{
		backend: b,
		path:    path,
		width:   stream.Width,
		height:  stream.Height,
		frames:  stream.frameCount(),
	}
	log.Debug().
		Str("codec", stream.CodecName).
		Int("width", c.width).
		Int("height", c.height).
		Int("frames", c.frames).
		Msg("Video opened")
	return c, nil
}

func parseProbe(out []byte) (*probeStream, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, errors.New("no video stream")
	}
	s := probe.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("video stream has no dimensions (%dx%d)", s.Width, s.Height)
	}
	return &s, nil
}

// frameCount prefers the demuxed packet count, then the container's frame
// count, then an estimate from duration and frame rate.
func (s *probeStream) frameCount() int {
	if n, err := strconv.Atoi(s.NbReadPackets); err == nil && n > 0 {
		return n
	}
	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		return n
	}
	dur, err := strconv.ParseFloat(s.Duration, 64)
	if err != nil || dur <= 0 {
		return 0
	}
	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}
	return int(math.Floor(dur * fps))
}

// parseRate parses "30000/1001" or "25" style rates.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

type ffmpegCapture struct {
	backend *FFmpegBackend
	path    string
	width   int
	height  int
	frames  int
	closed  bool
}

func (c *ffmpegCapture) FrameCount() int { return c.frames }

// ReadFrame decodes frame index as raw bgr24. Auto-rotation is disabled so
// the output matches the probed dimensions.
func (c *ffmpegCapture) ReadFrame(ctx context.Context, index int) (*BGRFrame, error) {
	if c.closed {
		return nil, errors.New("capture is closed")
	}
	cmd := exec.CommandContext(ctx, c.backend.FFmpegPath,
		"-v", "error",
		"-noautorotate",
		"-i", c.path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-vsync", "0",
		"-frames:v", "1",
		"-pix_fmt", "bgr24",
		"-f", "rawvideo",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame decoded at index %d", index)
	}
	return &BGRFrame{Width: c.width, Height: c.height, Pix: out}, nil
}

func (c *ffmpegCapture) Close() error {
	c.closed = true
	return nil
}
