package main

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/civic-sense/inference-services/internal/caption"
	"github.com/civic-sense/inference-services/internal/inference"
	"github.com/civic-sense/inference-services/internal/triage"
)

type triageInput struct {
	Text string `json:"text" jsonschema:"the complaint text as written by the citizen"`
}

type correctInput struct {
	Label      string  `json:"label" jsonschema:"classifier label of the form '<department> | <priority>'"`
	Confidence float64 `json:"confidence" jsonschema:"classifier confidence between 0 and 1"`
	Text       string  `json:"text,omitempty" jsonschema:"complaint text used for keyword escalation"`
}

type cleanInput struct {
	Caption  string `json:"caption" jsonschema:"raw caption from the image captioning model"`
	Template *int   `json:"template,omitempty" jsonschema:"complaint template index; random when omitted"`
}

type cleanOutput struct {
	Cleaned          string `json:"cleaned"`
	Complaint        string `json:"complaint"`
	VideoDescription string `json:"video_description"`
}

// toolset backs the MCP tools. classifier is nil in offline mode.
type toolset struct {
	classifier inference.Classifier
	random     caption.RandomSource
}

func (t *toolset) register(server *mcp.Server) {
	if t.classifier != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "triage_complaint",
			Description: "Classify a civic complaint into a responsible department and priority (Low, Medium, High).",
		}, t.triageComplaint)
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "correct_priority",
		Description: "Apply the department keyword rules to an existing '<department> | <priority>' label.",
	}, t.correctPriority)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "clean_caption",
		Description: "Strip prompt echoes from an image caption and render it as complaint and video-description text.",
	}, t.cleanCaption)
}

func (t *toolset) triageComplaint(ctx context.Context, _ *mcp.CallToolRequest, in triageInput) (*mcp.CallToolResult, triage.Verdict, error) {
	result, err := t.classifier.Classify(ctx, in.Text)
	if err != nil {
		return nil, triage.Verdict{}, err
	}
	verdict, err := triage.Correct(result.Label, result.Confidence, in.Text)
	if err != nil {
		return nil, triage.Verdict{}, err
	}
	if !triage.KnownPriority(verdict.Priority) {
		log.Warn().Str("label", result.Label).Msg("Classifier returned an unknown priority")
	}
	return nil, verdict, nil
}

func (t *toolset) correctPriority(_ context.Context, _ *mcp.CallToolRequest, in correctInput) (*mcp.CallToolResult, triage.Verdict, error) {
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, triage.Verdict{}, errors.New("confidence must be between 0 and 1")
	}
	verdict, err := triage.Correct(in.Label, in.Confidence, in.Text)
	if err != nil {
		return nil, triage.Verdict{}, err
	}
	return nil, verdict, nil
}

func (t *toolset) cleanCaption(_ context.Context, _ *mcp.CallToolRequest, in cleanInput) (*mcp.CallToolResult, cleanOutput, error) {
	if strings.TrimSpace(in.Caption) == "" {
		return nil, cleanOutput{}, errors.New("caption is required")
	}
	rnd := t.random
	if in.Template != nil {
		rnd = caption.Fixed(*in.Template)
	}
	cleaned := caption.Clean(in.Caption)
	return nil, cleanOutput{
		Cleaned:          cleaned,
		Complaint:        caption.Complaint(cleaned, rnd),
		VideoDescription: caption.VideoDescription(cleaned),
	}, nil
}
