package mock

import (
	"context"

	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var (
	_ enveye.Explainer = (*Explainer)(nil)
	_ enveye.Clipboard = (*Clipboard)(nil)
)

// Explainer is a mock implementation of enveye.Explainer.
type Explainer struct {
	ExplainFn func(ctx context.Context, input enveye.ExplanationContext) (string, error)
}

func (e *Explainer) Explain(ctx context.Context, input enveye.ExplanationContext) (string, error) {
	return e.ExplainFn(ctx, input)
}

// Clipboard is a mock implementation of enveye.Clipboard.
type Clipboard struct {
	CopyFn func(text string) error
}

func (c *Clipboard) Copy(text string) error {
	return c.CopyFn(text)
}
