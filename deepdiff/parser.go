// Package deepdiff reads DeepDiff-style structural diff documents using
// tidwall/gjson, which walks objects in document order.
package deepdiff

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var _ enveye.DiffParser = (*Parser)(nil)

// ErrInvalidDocument is returned when the input is not a structural diff.
var ErrInvalidDocument = errors.New("deepdiff: invalid document")

// Section keys of a structural diff.
const (
	keyValuesChanged = "values_changed"
	keyItemAdded     = "dictionary_item_added"
	keyItemRemoved   = "dictionary_item_removed"

	// keyEnvelope wraps the diff in responses of the snapshot compare endpoint.
	keyEnvelope = "differences"
)

// Parser parses structural diff JSON.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a structural diff document. Entry order follows the document.
// Blank input yields an empty diff. A {"differences": {...}} envelope is
// unwrapped. Sections other than the three known ones are kept in Raw only.
func (p *Parser) Parse(r io.Reader) (*enveye.StructuralDiff, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes is Parse for an in-memory document.
func ParseBytes(data []byte) (*enveye.StructuralDiff, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &enveye.StructuralDiff{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}
	if env := doc.Get(keyEnvelope); env.IsObject() && !hasSections(doc) {
		doc = env
	}

	diff := &enveye.StructuralDiff{Raw: json.RawMessage(doc.Raw)}

	changed, err := section(doc, keyValuesChanged)
	if err != nil {
		return nil, err
	}
	changed.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			err = fmt.Errorf("%w: %s entry %q is not an object", ErrInvalidDocument, keyValuesChanged, key.String())
			return false
		}
		diff.ValuesChanged = append(diff.ValuesChanged, enveye.ValueChange{
			Path:     key.String(),
			OldValue: valueOf(value.Get("old_value")),
			NewValue: valueOf(value.Get("new_value")),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	if diff.DictionaryItemAdded, err = entries(doc, keyItemAdded); err != nil {
		return nil, err
	}
	if diff.DictionaryItemRemoved, err = entries(doc, keyItemRemoved); err != nil {
		return nil, err
	}

	return diff, nil
}

func hasSections(doc gjson.Result) bool {
	for _, k := range []string{keyValuesChanged, keyItemAdded, keyItemRemoved} {
		if doc.Get(k).Exists() {
			return true
		}
	}
	return false
}

// section returns the named section, treating a missing or null one as empty.
func section(doc gjson.Result, key string) (gjson.Result, error) {
	s := doc.Get(key)
	if !s.Exists() || s.Type == gjson.Null {
		return gjson.Result{}, nil
	}
	if !s.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: %s must be an object", ErrInvalidDocument, key)
	}
	return s, nil
}

func entries(doc gjson.Result, key string) ([]enveye.Entry, error) {
	s, err := section(doc, key)
	if err != nil {
		return nil, err
	}
	var out []enveye.Entry
	s.ForEach(func(k, v gjson.Result) bool {
		out = append(out, enveye.Entry{Path: k.String(), Value: valueOf(v)})
		return true
	})
	return out, nil
}

func valueOf(r gjson.Result) enveye.Value {
	if !r.Exists() {
		return enveye.Absent
	}
	return enveye.RawValue([]byte(r.Raw))
}
