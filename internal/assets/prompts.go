// Package assets holds the prompt templates embedded into the service
// binaries. Prompts live as text files under prompts/ so they can be
// reviewed and edited without touching Go code.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// ClassifySystemPrompt instructs prompted classifiers to answer with a
// "<Department> | <Priority>" label and a confidence.
//
//go:embed prompts/classify-system.txt
var ClassifySystemPrompt string

// CaptionSystemPrompt instructs prompted captioners to continue from the
// conditioning text.
//
//go:embed prompts/caption-system.txt
var CaptionSystemPrompt string

// DetectSystemPrompt instructs prompted detectors to score "artificial"
// against "human".
//
//go:embed prompts/detect-system.txt
var DetectSystemPrompt string

//go:embed prompts/classify-user.tmpl
var classifyUserTemplate string

var classifyUserTmpl = template.Must(template.New("classify").Parse(classifyUserTemplate))

// ClassifyData is the input to RenderClassifyPrompt.
type ClassifyData struct {
	Text   string
	Labels []string
}

// RenderClassifyPrompt renders the per-request classification prompt.
func RenderClassifyPrompt(text string, labels []string) string {
	var buf bytes.Buffer
	if err := classifyUserTmpl.Execute(&buf, ClassifyData{Text: text, Labels: labels}); err != nil {
		// Only reachable if the embedded template references a missing field.
		return "Complaint:\n" + text
	}
	return buf.String()
}

// RenderCaptionPrompt returns the user turn for a captioning request.
func RenderCaptionPrompt(conditioning string) string {
	return "Begin your caption with: \"" + conditioning + "\""
}
