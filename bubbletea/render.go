package bubbletea

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/usertbera/enveye"
)

// EmptyDiffMessage is shown instead of the table when there are no records.
const EmptyDiffMessage = "No differences found!"

// rawLanguage is the tokenizer language of the raw document view.
const rawLanguage = "json"

// Column layout of the diff table.
const (
	kindColumnWidth = 8
	minValueWidth   = 30
	ellipsis        = "…"
)

// renderConfig holds all rendering parameters for renderTable and renderRaw.
type renderConfig struct {
	styles     enveye.Styles
	renderer   *lipgloss.Renderer
	width      int
	tokenizer  enveye.Tokenizer
	wordDiffer enveye.WordDiffer
}

type columns struct {
	path, old, new int
}

func layout(width int) columns {
	avail := width - kindColumnWidth - 3
	if avail < minValueWidth {
		avail = minValueWidth
	}
	path := avail * 2 / 5
	old := (avail - path) / 2
	return columns{path: path, old: old, new: avail - path - old}
}

// renderTable renders change records as a four-column table with one row
// per record, coloured by kind.
func renderTable(records []enveye.ChangeRecord, cfg renderConfig) string {
	if len(records) == 0 {
		return EmptyDiffMessage + "\n"
	}

	cols := layout(cfg.width)
	headerStyle := styleFromColorPair(cfg.styles.TableHeader, cfg.renderer).Bold(true)

	var sb strings.Builder
	sb.WriteString(renderRow(headerStyle, headerStyle, headerStyle, cols,
		plain("Type"), plain("Path"), plain("Old value"), plain("New value")))
	sb.WriteString("\n")

	highlight := styleFromColorPair(cfg.styles.ChangedHighlight, cfg.renderer)
	for _, r := range records {
		base := styleFromColorPair(cfg.styles.StyleFor(r.Kind), cfg.renderer)
		absent := base.Foreground(lipgloss.Color(cfg.styles.Absent.Foreground)).Italic(true)

		oldSegs, newSegs := valueSegments(r, cfg.wordDiffer)
		sb.WriteString(renderRow(base, highlight, absent, cols,
			plain(r.Kind.String()), plain(r.DisplayPath),
			valueCell{segs: oldSegs, absent: r.OldValue.IsAbsent()},
			valueCell{segs: newSegs, absent: r.NewValue.IsAbsent()},
		))
		sb.WriteString("\n")
	}
	return sb.String()
}

// valueCell is the content of one table cell.
type valueCell struct {
	segs   []enveye.Segment
	absent bool
}

func plain(s string) valueCell {
	return valueCell{segs: []enveye.Segment{{Text: s}}}
}

// valueSegments splits the old and new values of a changed record into
// changed and unchanged segments. Other kinds have one unchanged segment per
// side.
func valueSegments(r enveye.ChangeRecord, differ enveye.WordDiffer) (oldSegs, newSegs []enveye.Segment) {
	oldText, newText := r.OldValue.String(), r.NewValue.String()
	if r.Kind == enveye.KindChanged && differ != nil {
		return differ.Diff(oldText, newText)
	}
	return []enveye.Segment{{Text: oldText}}, []enveye.Segment{{Text: newText}}
}

func renderRow(base, highlight, absent lipgloss.Style, cols columns, kind, path, old, new valueCell) string {
	sep := base.Render(" ")
	return renderCell(kind, kindColumnWidth, base, highlight, absent) + sep +
		renderCell(path, cols.path, base, highlight, absent) + sep +
		renderCell(old, cols.old, base, highlight, absent) + sep +
		renderCell(new, cols.new, base, highlight, absent)
}

// renderCell renders a cell at exactly width columns, truncating with an
// ellipsis and padding with the base style.
func renderCell(c valueCell, width int, base, highlight, absent lipgloss.Style) string {
	var sb strings.Builder
	for _, seg := range c.segs {
		text := ExpandTabs(seg.Text, 0)
		switch {
		case c.absent:
			sb.WriteString(absent.Render(text))
		case seg.Changed:
			sb.WriteString(highlight.Render(text))
		default:
			sb.WriteString(base.Render(text))
		}
	}

	cell := sb.String()
	if lipgloss.Width(cell) > width {
		cell = ansi.Truncate(cell, width, base.Render(ellipsis))
	}
	if pad := width - lipgloss.Width(cell); pad > 0 {
		cell += base.Render(strings.Repeat(" ", pad))
	}
	return cell
}

// renderRaw renders the diff document as indented, syntax-highlighted JSON.
func renderRaw(diff *enveye.StructuralDiff, cfg renderConfig) string {
	if diff == nil {
		diff = &enveye.StructuralDiff{}
	}
	doc, err := diff.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("cannot render diff: %v\n", err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, doc, "", "  "); err != nil {
		indented.Reset()
		indented.Write(doc)
	}

	source := ExpandTabs(indented.String(), 0)
	if cfg.tokenizer == nil {
		return source + "\n"
	}
	tokens := cfg.tokenizer.Tokenize(rawLanguage, source)
	if tokens == nil {
		return source + "\n"
	}
	return renderTokens(tokens, cfg.renderer) + "\n"
}

// renderTokens styles each token, keeping newlines outside styled runs so
// every line carries its own escape sequences.
func renderTokens(tokens []enveye.Token, renderer *lipgloss.Renderer) string {
	var sb strings.Builder
	for _, tok := range tokens {
		style := newStyle(renderer).Bold(tok.Style.Bold)
		if tok.Style.Foreground != "" {
			style = style.Foreground(lipgloss.Color(tok.Style.Foreground))
		}
		for i, part := range strings.Split(tok.Text, "\n") {
			if i > 0 {
				sb.WriteString("\n")
			}
			if part != "" {
				sb.WriteString(style.Render(part))
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// summaryLine describes the record counts, e.g. "3 changes: 1 changed, 1
// added, 1 removed".
func summaryLine(records []enveye.ChangeRecord) string {
	counts := enveye.Counts(records)
	noun := "changes"
	if len(records) == 1 {
		noun = "change"
	}
	return fmt.Sprintf("%d %s: %d changed, %d added, %d removed",
		len(records), noun,
		counts[enveye.KindChanged], counts[enveye.KindAdded], counts[enveye.KindRemoved])
}

// formatSize renders a byte count for the screenshot field.
func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// styleFromColorPair creates a lipgloss style from a ColorPair.
// If renderer is nil, the default lipgloss renderer is used.
func styleFromColorPair(cp enveye.ColorPair, renderer *lipgloss.Renderer) lipgloss.Style {
	style := newStyle(renderer)
	if cp.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cp.Foreground))
	}
	if cp.Background != "" {
		style = style.Background(lipgloss.Color(cp.Background))
	}
	return style
}

func newStyle(renderer *lipgloss.Renderer) lipgloss.Style {
	if renderer != nil {
		return renderer.NewStyle()
	}
	return lipgloss.NewStyle()
}

// padLine pads a line with spaces to reach the target width.
func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
	}
	return line
}
