package inference

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civic-sense/inference-services/internal/jsonutil"
	"github.com/civic-sense/inference-services/internal/metrics"
)

// Model operations, used as the Operation metric dimension.
const (
	OpClassify = "classify"
	OpCaption  = "caption"
	OpDetect   = "detect"
)

// observe logs and records the latency and outcome of one model call.
func observe(provider, op, model string, start time.Time, err error) {
	elapsed := time.Since(start)
	rec := metrics.New(metrics.Namespace).
		Dimension("Provider", provider).
		Dimension("Operation", op).
		Duration("ModelLatencyMs", elapsed).
		Count("ModelCallCount").
		Property("model", model)
	if err != nil {
		rec.Count("ModelErrorCount")
		log.Error().Err(err).Str("provider", provider).Str("op", op).Dur("duration", elapsed).Msg("Model call failed")
	} else {
		log.Debug().Str("provider", provider).Str("op", op).Dur("duration", elapsed).Msg("Model call complete")
	}
	rec.Flush()
}

// normalizeDetections clamps scores to [0,1] and orders entries by
// descending score, as image-classification pipelines do.
func normalizeDetections(in []Detection) []Detection {
	out := make([]Detection, 0, len(in))
	for _, d := range in {
		if d.Label == "" {
			continue
		}
		d.Score = min(max(d.Score, 0), 1)
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func clampConfidence(c float64) float64 {
	return min(max(c, 0), 1)
}

// parseClassification reads a prompted model's {"label", "confidence"} reply.
func parseClassification(raw string) (Classification, error) {
	c, err := jsonutil.Parse[Classification](raw)
	if err != nil {
		return Classification{}, fmt.Errorf("failed to parse classification: %w", err)
	}
	c.Label = strings.TrimSpace(c.Label)
	if c.Label == "" {
		return Classification{}, errors.New("classification has no label")
	}
	c.Confidence = clampConfidence(c.Confidence)
	return c, nil
}

// detectResponse is the {"scores": [...]} object prompted detectors answer
// with. JSON modes only permit objects at the top level.
type detectResponse struct {
	Scores []Detection `json:"scores"`
}

// parseDetections reads a prompted detector's reply. A reply with no usable
// scores is an error, never an empty result.
func parseDetections(raw string) ([]Detection, error) {
	resp, err := jsonutil.Parse[detectResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detection scores: %w", err)
	}
	dets := normalizeDetections(resp.Scores)
	if len(dets) == 0 {
		return nil, errors.New("detection reply has no scores")
	}
	return dets, nil
}
