package enveye

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a change record.
type Kind int

// Change kinds. KindCritical is reserved for severity escalation and is never
// produced by Normalize.
const (
	KindChanged Kind = iota
	KindAdded
	KindRemoved
	KindCritical
)

// String returns the display label of the kind.
func (k Kind) String() string {
	switch k {
	case KindChanged:
		return "Changed"
	case KindAdded:
		return "Added"
	case KindRemoved:
		return "Removed"
	case KindCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// AbsentMarker is the rendering of an absent value. It is not valid JSON, so
// it never matches the rendering of a captured value.
const AbsentMarker = "<absent>"

// Value is an opaque snapshot value held as compact JSON, or absent.
type Value struct {
	raw json.RawMessage
}

// Absent is the value on the missing side of an added or removed entry.
var Absent = Value{}

// RawValue wraps a JSON encoded value. Empty input yields Absent.
func RawValue(raw []byte) Value {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Absent
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Value{raw: append(json.RawMessage(nil), raw...)}
	}
	return Value{raw: buf.Bytes()}
}

// ValueOf encodes v as a Value.
func ValueOf(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Absent, err
	}
	return Value{raw: raw}, nil
}

// MustValueOf is like ValueOf but panics on encoding errors.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

// IsAbsent reports whether the value is the absent sentinel.
func (v Value) IsAbsent() bool {
	return len(v.raw) == 0
}

// Raw returns the compact JSON encoding, or nil when absent.
func (v Value) Raw() json.RawMessage {
	return v.raw
}

// String renders the value as compact JSON, or AbsentMarker when absent.
func (v Value) String() string {
	if v.IsAbsent() {
		return AbsentMarker
	}
	return string(v.raw)
}

// ChangeRecord is the display-ready unit derived from one diff entry.
type ChangeRecord struct {
	Kind        Kind
	Path        string // Structural path as found in the diff
	DisplayPath string // Human-readable path, see PrettifyPath
	OldValue    Value
	NewValue    Value
}

// Normalize flattens a structural diff into ordered change records: all
// Changed entries, then Added, then Removed, each group in source order.
// A nil or empty diff yields no records.
func Normalize(diff *StructuralDiff) []ChangeRecord {
	if diff.IsEmpty() {
		return nil
	}

	records := make([]ChangeRecord, 0, diff.Len())
	for _, c := range diff.ValuesChanged {
		records = append(records, ChangeRecord{
			Kind:        KindChanged,
			Path:        c.Path,
			DisplayPath: PrettifyPath(c.Path),
			OldValue:    c.OldValue,
			NewValue:    c.NewValue,
		})
	}
	for _, e := range diff.DictionaryItemAdded {
		records = append(records, ChangeRecord{
			Kind:        KindAdded,
			Path:        e.Path,
			DisplayPath: PrettifyPath(e.Path),
			OldValue:    Absent,
			NewValue:    e.Value,
		})
	}
	for _, e := range diff.DictionaryItemRemoved {
		records = append(records, ChangeRecord{
			Kind:        KindRemoved,
			Path:        e.Path,
			DisplayPath: PrettifyPath(e.Path),
			OldValue:    e.Value,
			NewValue:    Absent,
		})
	}
	return records
}

// rootSentinel prefixes every structural path.
const rootSentinel = "root"

// PrettifyPath renders a structural path such as root['service']['port'] as
// "service > port". Quoting and brackets are discarded; keys that themselves
// contain ' or ] are not escaped and may display ambiguously.
func PrettifyPath(path string) string {
	if rest, ok := strings.CutPrefix(path, rootSentinel); ok && (rest == "" || strings.HasPrefix(rest, "[")) {
		path = rest
	}
	path = strings.ReplaceAll(path, "['", " > ")
	path = strings.ReplaceAll(path, "']", "")
	path = strings.TrimPrefix(path, " > ")
	return strings.TrimSpace(path)
}

// Counts returns the number of records of each kind.
func Counts(records []ChangeRecord) map[Kind]int {
	counts := make(map[Kind]int, 3)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
