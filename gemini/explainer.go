package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var _ enveye.Explainer = (*Explainer)(nil)

// DefaultExplainTimeout is the default timeout for a single explain call.
const DefaultExplainTimeout = 60 * time.Second

// ErrEmptyExplanation is returned when the model answers with no text.
var ErrEmptyExplanation = errors.New("gemini: empty explanation")

// Explainer implements enveye.Explainer using Google Gemini.
type Explainer struct {
	client  GenerativeClient
	model   string
	timeout time.Duration
}

// ExplainerOption configures an Explainer.
type ExplainerOption func(*Explainer)

// WithTimeout sets the timeout for API calls.
func WithTimeout(d time.Duration) ExplainerOption {
	return func(e *Explainer) {
		e.timeout = d
	}
}

// NewExplainer creates a new Explainer.
func NewExplainer(client GenerativeClient, model string, opts ...ExplainerOption) *Explainer {
	if model == "" {
		model = DefaultModel
	}
	e := &Explainer{
		client:  client,
		model:   model,
		timeout: DefaultExplainTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain asks Gemini to explain the diff. An attached screenshot is sent as
// an inline image part after the text prompt.
func (e *Explainer) Explain(ctx context.Context, ec enveye.ExplanationContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt, err := BuildPrompt(ec)
	if err != nil {
		return "", err
	}
	parts := []*Part{{Text: prompt}}

	if ec.ErrorScreenshot != nil {
		shot, data, err := enveye.ParseScreenshot(ec.ErrorScreenshot.DataURI)
		if err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
		parts = append(parts, &Part{InlineData: &Blob{MIMEType: shot.MIMEType, Data: data}})
	}

	resp, err := e.client.GenerateContent(ctx, e.model, []*Content{{Parts: parts}}, BuildConfig())
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("gemini: returned nil response")
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyExplanation
	}
	return text, nil
}

// BuildPrompt renders the explanation prompt: the change list, the operator
// context and the diff document itself.
func BuildPrompt(ec enveye.ExplanationContext) (string, error) {
	var sb strings.Builder

	sb.WriteString(`Given the following DeepDiff output between two machine snapshots, do the following:

1. List each DLL file that changed, was added, or was removed, with the file name and old/new version.
2. List services that were stopped, missing, or started.
3. List environment variables that changed.
4. Provide findings as bullet points, one finding per line.
5. Be detailed but concise.
6. Do NOT repeat a generic summary, focus on concrete facts.
`)

	if ec.ErrorMessage != "" || ec.LogPath != "" || ec.ErrorScreenshot != nil {
		sb.WriteString("\n## Reported problem\n\n")
		if ec.ErrorMessage != "" {
			fmt.Fprintf(&sb, "Error message: %s\n", ec.ErrorMessage)
		}
		if ec.LogPath != "" {
			fmt.Fprintf(&sb, "Log file on the affected machine: %s\n", ec.LogPath)
		}
		if ec.ErrorScreenshot != nil {
			sb.WriteString("A screenshot of the error is attached.\n")
		}
		sb.WriteString("\nPoint out which differences most likely explain this problem.\n")
	}

	records := enveye.Normalize(ec.Diff)
	sb.WriteString("\n## Changes\n\n")
	if len(records) == 0 {
		sb.WriteString("No differences found.\n")
	}
	for _, r := range records {
		switch r.Kind {
		case enveye.KindAdded:
			fmt.Fprintf(&sb, "- Added %s = %s\n", r.DisplayPath, r.NewValue)
		case enveye.KindRemoved:
			fmt.Fprintf(&sb, "- Removed %s (was %s)\n", r.DisplayPath, r.OldValue)
		default:
			fmt.Fprintf(&sb, "- Changed %s: %s -> %s\n", r.DisplayPath, r.OldValue, r.NewValue)
		}
	}

	if ec.Diff != nil {
		raw, err := ec.Diff.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("gemini: encode diff: %w", err)
		}
		sb.WriteString("\n## Diff data\n\n```json\n")
		sb.Write(raw)
		sb.WriteString("\n```\n")
	}

	return sb.String(), nil
}

// BuildConfig returns the GenerateContentConfig for explain calls.
func BuildConfig() *GenerateContentConfig {
	temp := float32(0.5)
	return &GenerateContentConfig{
		SystemInstruction: &Content{
			Parts: []*Part{{
				Text: "You are a helpful assistant specialized in IT systems, configuration comparisons and QA testing.",
			}},
		},
		Temperature:     &temp,
		MaxOutputTokens: 500,
	}
}
