package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/civic-sense/inference-services/internal/apperr"
	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/media"
	"github.com/civic-sense/inference-services/internal/triage"
)

// maxPredictBody bounds the /predict JSON body.
const maxPredictBody = 1 << 20

type predictRequest struct {
	Text string `json:"text"`
}

type descriptionResponse struct {
	Description string `json:"description"`
	RawCaption  string `json:"raw_caption,omitempty"`
}

// handlePredict classifies complaint text and applies the priority rules.
// A missing body or text field classifies the empty string.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.predict"
	if !requirePost(w, r) {
		return
	}
	logger := zerolog.Ctx(r.Context())

	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, apperr.Wrap(apperr.InvalidRequest, op, "Invalid JSON body", err))
		return
	}

	result, err := s.models.Classifier.Classify(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ProcessingFailed, op, "Classification failed", err))
		return
	}

	verdict, err := triage.Correct(result.Label, result.Confidence, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !triage.KnownPriority(verdict.Priority) {
		logger.Warn().
			Str("label", result.Label).
			Str("priority", verdict.Priority).
			Msg("Classifier returned an unknown priority")
	}

	logger.Debug().
		Str("label", result.Label).
		Str("department", verdict.Department).
		Str("priority", verdict.Priority).
		Float64("confidence", verdict.Confidence).
		Msg("Complaint classified")

	respondJSON(w, http.StatusOK, verdict)
}

// handleCaption captions an uploaded image and phrases it as a complaint.
func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.caption"
	if !requirePost(w, r) {
		return
	}

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

	raw, err := s.models.Captioner.Caption(r.Context(), img)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ProcessingFailed, op, "Caption generation failed", err))
		return
	}
	cleaned := caption.Clean(raw)

	zerolog.Ctx(r.Context()).Debug().Str("caption", cleaned).Msg("Image captioned")
	respondJSON(w, http.StatusOK, descriptionResponse{
		Description: caption.Complaint(cleaned, s.random),
	})
}

// readImage buffers the "image" upload. Images are decoded whole, so
// there is nothing to gain from staging them on disk.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	const op = "httpapi.readImage"

	up, err := s.openUpload(w, r, "image", false)
	if err != nil {
		return nil, err
	}
	if up == nil {
		return nil, apperr.New(apperr.NoFileUploaded, op, "No image uploaded")
	}
	defer up.Close()

	data, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, uploadError(op, err)
	}
	return data, nil
}
