// Package enveye provides domain types for presenting environment snapshot
// diffs and requesting explanations of them.
package enveye

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// StructuralDiff is a machine-computed difference between two environment
// snapshots, expressed as three categorized lists keyed by structural path.
// Entries keep the order of the source document.
type StructuralDiff struct {
	ValuesChanged         []ValueChange
	DictionaryItemAdded   []Entry
	DictionaryItemRemoved []Entry

	// Raw is the verbatim source document. It is forwarded untouched to the
	// explanation service. Empty for diffs built in code.
	Raw json.RawMessage
}

// ValueChange is one values_changed entry.
type ValueChange struct {
	Path     string // Structural path, e.g. root['db']['port']
	OldValue Value
	NewValue Value
}

// Entry is one dictionary_item_added or dictionary_item_removed entry.
type Entry struct {
	Path  string
	Value Value
}

// Len returns the total number of entries across the three lists.
func (d *StructuralDiff) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ValuesChanged) + len(d.DictionaryItemAdded) + len(d.DictionaryItemRemoved)
}

// IsEmpty reports whether the diff has no entries. An empty diff is a valid
// terminal state, not an error.
func (d *StructuralDiff) IsEmpty() bool {
	return d.Len() == 0
}

// MarshalJSON returns the verbatim source document when one is attached,
// otherwise an order-preserving encoding of the three lists.
func (d StructuralDiff) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	section := func(name string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeKey(&buf, name)
	}

	if len(d.ValuesChanged) > 0 {
		section("values_changed")
		buf.WriteByte('{')
		for i, c := range d.ValuesChanged {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, c.Path)
			buf.WriteByte('{')
			sep := false
			if !c.OldValue.IsAbsent() {
				writeKey(&buf, "old_value")
				buf.Write(c.OldValue.raw)
				sep = true
			}
			if !c.NewValue.IsAbsent() {
				if sep {
					buf.WriteByte(',')
				}
				writeKey(&buf, "new_value")
				buf.Write(c.NewValue.raw)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	for _, group := range []struct {
		name    string
		entries []Entry
	}{
		{"dictionary_item_added", d.DictionaryItemAdded},
		{"dictionary_item_removed", d.DictionaryItemRemoved},
	} {
		if len(group.entries) == 0 {
			continue
		}
		section(group.name)
		buf.WriteByte('{')
		for i, e := range group.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, e.Path)
			if e.Value.IsAbsent() {
				buf.WriteString("null")
			} else {
				buf.Write(e.Value.raw)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}

// DiffParser reads a structural diff document.
type DiffParser interface {
	Parse(r io.Reader) (*StructuralDiff, error)
}

// Explainer asks an explanation service to describe a diff in natural language.
type Explainer interface {
	// Explain returns the explanation text for the given context.
	Explain(ctx context.Context, ec ExplanationContext) (string, error)
}

// Viewer displays a structural diff to the operator.
type Viewer interface {
	View(ctx context.Context, diff *StructuralDiff) error
}

// Clipboard provides copy-to-clipboard functionality.
type Clipboard interface {
	Copy(content string) error
}
