package httpapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/civic-sense/inference-services/internal/apperr"
	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/fakedetect"
	"github.com/civic-sense/inference-services/internal/media"
)

type fakeImageResponse struct {
	fakedetect.Verdict
	Provenance *media.Provenance `json:"provenance,omitempty"`
}

// handleAnalyzeVideo captions the middle frame of an uploaded video.
func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.analyzeVideo"
	if !requirePost(w, r) {
		return
	}

	frame, err := s.sampleVideo(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	raw, err := s.models.Captioner.Caption(r.Context(), frame.Image)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ProcessingFailed, op, "Caption generation failed", err))
		return
	}
	cleaned := caption.Clean(raw)

	zerolog.Ctx(r.Context()).Debug().
		Int("frame", frame.Index).
		Str("caption", cleaned).
		Msg("Video frame captioned")

	respondJSON(w, http.StatusOK, descriptionResponse{
		Description: caption.VideoDescription(cleaned),
		RawCaption:  cleaned,
	})
}

// handleDetectFakeImage scores an uploaded image. With ?provenance=true the
// response also carries whatever EXIF provenance the file has.
func (s *Server) handleDetectFakeImage(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.detectFakeImage"
	if !requirePost(w, r) {
		return
	}
	logger := zerolog.Ctx(r.Context())

	data, err := s.readImage(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := media.DecodeImage(bytes.NewReader(data))
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := s.models.Detector.Detect(r.Context(), img)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ProcessingFailed, op, "Detection failed", err))
		return
	}
	resp := fakeImageResponse{Verdict: fakedetect.Aggregate(entries)}

	if want, _ := strconv.ParseBool(r.URL.Query().Get("provenance")); want {
		p, err := media.ReadProvenance(bytes.NewReader(data))
		if err != nil {
			logger.Debug().Err(err).Msg("No provenance metadata")
		}
		resp.Provenance = &p
	}

	logger.Debug().
		Bool("is_fake", resp.IsFake).
		Float64("confidence", resp.Confidence).
		Int("entries", len(resp.Details)).
		Msg("Image scored")
	respondJSON(w, http.StatusOK, resp)
}

// handleDetectFakeVideo scores the middle frame of an uploaded video.
func (s *Server) handleDetectFakeVideo(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.detectFakeVideo"
	if !requirePost(w, r) {
		return
	}

	frame, err := s.sampleVideo(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := s.models.Detector.Detect(r.Context(), frame.Image)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ProcessingFailed, op, "Detection failed", err))
		return
	}
	verdict := fakedetect.Aggregate(entries)

	zerolog.Ctx(r.Context()).Debug().
		Int("frame", frame.Index).
		Bool("is_fake", verdict.IsFake).
		Float64("confidence", verdict.Confidence).
		Msg("Video frame scored")
	respondJSON(w, http.StatusOK, verdict)
}

// sampleVideo streams the "video" upload (or s3_key object) through the
// sampler. The staged copy is gone by the time it returns.
func (s *Server) sampleVideo(w http.ResponseWriter, r *http.Request) (*media.Frame, error) {
	const op = "httpapi.sampleVideo"

	up, err := s.openUpload(w, r, "video", true)
	if err != nil {
		return nil, err
	}
	if up == nil {
		return nil, apperr.New(apperr.NoFileUploaded, op, "No video uploaded")
	}
	defer up.Close()

	return s.sampler.Sample(r.Context(), up.Body, up.Filename)
}
