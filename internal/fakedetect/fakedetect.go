// Package fakedetect reduces image-classifier scores to a fake/real verdict.
package fakedetect

import "github.com/civic-sense/inference-services/internal/inference"

// Threshold is the score an "artificial" or "fake" label must strictly exceed.
const Threshold = 0.9

var fakeLabels = map[string]bool{
	"artificial": true,
	"fake":       true,
}

// Verdict is the aggregated detection result.
type Verdict struct {
	IsFake     bool                  `json:"is_fake"`
	Confidence float64               `json:"confidence"`
	Details    []inference.Detection `json:"details"`
}

// Aggregate scans entries in the given order and stops at the first fake
// label scoring above Threshold. Details always carries every entry.
func Aggregate(entries []inference.Detection) Verdict {
	v := Verdict{Details: entries}
	if v.Details == nil {
		v.Details = []inference.Detection{}
	}
	for _, e := range entries {
		if fakeLabels[e.Label] && e.Score > Threshold {
			v.IsFake = true
			v.Confidence = e.Score
			break
		}
	}
	return v
}
