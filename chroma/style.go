package chroma

import (
	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/usertbera/enveye"
)

// StyleFromPalette returns a function that maps chroma token types to enveye
// styles based on the JSON colors of the palette.
func StyleFromPalette(p enveye.Palette) StyleFunc {
	return func(tt chromalib.TokenType) enveye.Style {
		switch {
		// Object keys
		case tt == chromalib.NameTag:
			return enveye.Style{Foreground: string(p.Key)}

		// true, false, null
		case tt.InCategory(chromalib.Keyword):
			return enveye.Style{Foreground: string(p.Keyword), Bold: true}

		case tt.InSubCategory(chromalib.LiteralString):
			return enveye.Style{Foreground: string(p.String)}

		case tt.InSubCategory(chromalib.LiteralNumber):
			return enveye.Style{Foreground: string(p.Number)}

		case tt == chromalib.Punctuation:
			return enveye.Style{Foreground: string(p.Punctuation)}

		default:
			return enveye.Style{}
		}
	}
}
