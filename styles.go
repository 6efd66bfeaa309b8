package enveye

// ColorPair represents a foreground and background color combination.
// Colors should be hex strings in "#RRGGBB" format (e.g., "#ff0000" for red).
// Empty strings are valid and indicate no color override (use terminal default).
type ColorPair struct {
	Foreground string
	Background string
}

// Styles contains color pairs for all visual elements of the diff screen.
type Styles struct {
	Changed          ColorPair // Rows for values_changed entries
	Added            ColorPair // Rows for dictionary_item_added entries
	Removed          ColorPair // Rows for dictionary_item_removed entries
	Critical         ColorPair // Reserved severity, rendered like a removal
	ChangedHighlight ColorPair // Changed segments within old/new values
	Absent           ColorPair // The absent-value marker
	TableHeader      ColorPair // Column titles of the diff table
	Title            ColorPair // Screen and panel titles
	Explanation      ColorPair // Explanation text on success
	Failure          ColorPair // Failure reason and attachment errors
	StatusBar        ColorPair // Bottom status line
}

// Color is a hex color string such as "#cdd6f4".
type Color string

// Palette is the semantic color set a theme is built from. Syntax colors are
// used by the raw JSON view.
type Palette struct {
	Background Color
	Foreground Color

	Changed  Color
	Added    Color
	Removed  Color
	Critical Color

	Key         Color // Object keys
	String      Color
	Number      Color
	Keyword     Color // true, false, null
	Punctuation Color

	UIBackground Color
	UIForeground Color
	UIAccent     Color
}

// Theme provides styles for rendering diffs.
// Different implementations can provide light/dark variants.
type Theme interface {
	Styles() Styles
	Palette() Palette
}

// StyleFor returns the row style for a change kind.
func (s Styles) StyleFor(k Kind) ColorPair {
	switch k {
	case KindChanged:
		return s.Changed
	case KindAdded:
		return s.Added
	case KindRemoved:
		return s.Removed
	default:
		return s.Critical
	}
}
