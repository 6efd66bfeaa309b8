package enveye

// Token represents a syntax-highlighted segment of text.
type Token struct {
	Text  string // The text content of this token
	Style Style  // Visual style to apply (colors, bold, etc.)
}

// Style represents the visual styling for a token.
type Style struct {
	Foreground string // Hex color code (e.g., "#ff0000") or empty for default
	Bold       bool   // Whether the text should be bold
}

// Tokenizer extracts syntax tokens from source text.
type Tokenizer interface {
	// Tokenize splits source into syntax-highlighted tokens for the given language.
	// Returns nil if the language is not supported.
	Tokenize(language, source string) []Token
}

// Segment represents a portion of a value for highlighting what changed.
type Segment struct {
	Text    string // The text content of this segment
	Changed bool   // True if this segment differs between old/new values
}

// WordDiffer computes segment-level differences between two rendered values.
type WordDiffer interface {
	// Diff returns segments for both the old and new strings,
	// marking which portions changed between them.
	Diff(old, new string) (oldSegs, newSegs []Segment)
}
