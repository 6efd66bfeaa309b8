// Package mock provides test doubles for enveye interfaces.
package mock

import (
	"io"

	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var _ enveye.DiffParser = (*DiffParser)(nil)

// DiffParser is a mock implementation of enveye.DiffParser.
type DiffParser struct {
	ParseFn func(r io.Reader) (*enveye.StructuralDiff, error)
}

func (p *DiffParser) Parse(r io.Reader) (*enveye.StructuralDiff, error) {
	return p.ParseFn(r)
}
