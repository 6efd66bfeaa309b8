package mock

import (
	"context"

	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var _ enveye.Viewer = (*Viewer)(nil)

// Viewer is a mock implementation of enveye.Viewer.
type Viewer struct {
	ViewFn func(ctx context.Context, diff *enveye.StructuralDiff) error
}

func (v *Viewer) View(ctx context.Context, diff *enveye.StructuralDiff) error {
	return v.ViewFn(ctx, diff)
}
