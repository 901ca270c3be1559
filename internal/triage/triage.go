// Package triage turns a raw complaint classification into a final
// department and priority, applying keyword rules that can only raise the
// classifier's priority.
package triage

import (
	"math"
	"strings"
	"unicode"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// LabelSeparator splits a raw classifier label into department and priority.
const LabelSeparator = " | "

// Priority tiers emitted by the classifier.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Verdict is the corrected classification returned to callers.
type Verdict struct {
	Department string  `json:"department"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

// rule raises priority for one department when any keyword appears in the
// lower-cased complaint text.
type rule struct {
	department string
	keywords   []string
	apply      func(priority string) string
}

func forceHigh(string) string { return PriorityHigh }

func lowToMedium(p string) string {
	if p == PriorityLow {
		return PriorityMedium
	}
	return p
}

var rules = []rule{
	{
		department: "Public Works Department",
		keywords:   []string{"pothole", "broken road"},
		apply:      forceHigh,
	},
	{
		department: "Cleaning Department",
		keywords:   []string{"not been collected", "five days", "smell"},
		apply:      lowToMedium,
	},
	{
		department: "Water Department",
		keywords:   []string{"no water", "irregular"},
		apply:      lowToMedium,
	},
}

// ParseLabel splits a "<department> | <priority>" label. Anything other than
// exactly one separator is a contract violation by the model layer.
func ParseLabel(label string) (department, priority string, err error) {
	parts := strings.Split(label, LabelSeparator)
	if len(parts) != 2 {
		return "", "", apperr.New(apperr.MalformedLabel, "triage.ParseLabel",
			"Malformed classifier label")
	}
	return parts[0], parts[1], nil
}

// Correct applies the department rules to a raw label and its confidence
// (0..1). The returned confidence is a percentage rounded to two decimals.
func Correct(label string, confidence float64, text string) (Verdict, error) {
	department, priority, err := ParseLabel(label)
	if err != nil {
		return Verdict{}, err
	}
	department = TitleCase(department)
	lower := strings.ToLower(text)

	for _, r := range rules {
		if r.department != department {
			continue
		}
		if containsAny(lower, r.keywords) {
			priority = r.apply(priority)
		}
	}

	return Verdict{
		Department: department,
		Priority:   priority,
		Confidence: Percent(confidence),
	}, nil
}

// Percent converts a 0..1 confidence to a percentage with two decimals.
func Percent(confidence float64) float64 {
	return math.Round(confidence*100*100) / 100
}

// KnownPriority reports whether p is one of Low, Medium, High.
func KnownPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TitleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "water department" becomes "Water Department".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
