package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// --- JSON Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps err onto its status and caller-facing message. The full
// error chain goes to the log only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	message := apperr.MessageOf(err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		message = "Upload too large"
	}

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("kind", apperr.KindOf(err).String()).
		Msg("Request failed")

	httpError(w, status, message)
}
