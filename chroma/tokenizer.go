// Package chroma provides syntax highlighting using the chroma library.
package chroma

import (
	"errors"
	"strings"

	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/usertbera/enveye"
)

// LanguageJSON is the lexer name for diff documents.
const LanguageJSON = "json"

// Compile-time interface verification.
var _ enveye.Tokenizer = (*Tokenizer)(nil)

// StyleFunc maps chroma token types to enveye styles.
type StyleFunc func(chromalib.TokenType) enveye.Style

// Tokenizer extracts syntax tokens using chroma.
type Tokenizer struct {
	styleFunc StyleFunc
}

// NewTokenizer creates a new chroma-based tokenizer with the given style function.
// Use StyleFromPalette to create a style function from an enveye.Palette.
func NewTokenizer(styleFunc StyleFunc) (*Tokenizer, error) {
	if styleFunc == nil {
		return nil, errors.New("chroma: styleFunc cannot be nil")
	}
	return &Tokenizer{styleFunc: styleFunc}, nil
}

// Tokenize splits source into syntax-highlighted tokens for the given language.
// Returns nil if the language is not supported or an error occurs.
// Returns an empty slice for empty source (valid input, no tokens).
func (t *Tokenizer) Tokenize(language, source string) []enveye.Token {
	if source == "" {
		return []enveye.Token{}
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}

	// Coalesce for better performance with consecutive tokens of the same type
	lexer = chromalib.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil
	}

	var tokens []enveye.Token
	for token := iterator(); token != chromalib.EOF; token = iterator() {
		tokens = append(tokens, enveye.Token{
			Text:  token.Value,
			Style: t.styleFunc(token.Type),
		})
	}
	return tokens
}

// TokenizeLines tokenizes the whole source, then splits tokens by line so
// multi-line strings keep their style on every line.
// Returns nil if the language is not supported or an error occurs.
func (t *Tokenizer) TokenizeLines(language, source string) [][]enveye.Token {
	tokens := t.Tokenize(language, source)
	if tokens == nil {
		return nil
	}
	return splitTokensByLine(tokens)
}

// splitTokensByLine splits a flat list of tokens into per-line token slices.
// Empty lines yield nil entries so line numbers stay aligned.
func splitTokensByLine(tokens []enveye.Token) [][]enveye.Token {
	if len(tokens) == 0 {
		return [][]enveye.Token{}
	}

	var result [][]enveye.Token
	var currentLine []enveye.Token

	for _, tok := range tokens {
		if !strings.Contains(tok.Text, "\n") {
			currentLine = append(currentLine, tok)
			continue
		}

		parts := strings.Split(tok.Text, "\n")
		for i, part := range parts {
			if part != "" {
				currentLine = append(currentLine, enveye.Token{Text: part, Style: tok.Style})
			}
			if i < len(parts)-1 {
				result = append(result, currentLine)
				currentLine = nil
			}
		}
	}

	if len(currentLine) > 0 {
		result = append(result, currentLine)
	}
	return result
}
