// Package report renders the matches of a checked document for people and
// for tools.
//
// Matches are listed in importance order: grouped by category, then by
// position. Positions are 1-based lines and columns, where a column counts
// grapheme clusters rather than bytes so that it agrees with what a terminal
// shows.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat returns the format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Position is a 1-based line and column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf returns the position of a byte offset in text. Offsets outside
// the text are clamped.
func PositionOf(text string, off buffer.Offset) Position {
	if off < 0 {
		off = 0
	}
	if off > buffer.Offset(len(text)) {
		off = buffer.Offset(len(text))
	}
	before := text[:off]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Line:   strings.Count(before, "\n") + 1,
		Column: uniseg.GraphemeClusterCount(before[lineStart:]) + 1,
	}
}

// Report is the result of checking one document.
type Report struct {
	// Path names the document in output.
	Path string
	// Text is the document the match ranges refer to.
	Text string
	// Matches are in importance order.
	Matches []state.Match
	// Error is the last matcher error, if any.
	Error string
}

// New builds a report from a document and the state that holds its matches.
func New(path string, doc *buffer.Document, s state.State) Report {
	return Report{
		Path:    path,
		Text:    doc.Text(),
		Matches: state.SelectImportanceOrderedMatches(s),
		Error:   s.ErrorMessage,
	}
}

// Option configures rendering.
type Option func(*writer)

// WithColour colours category labels in text output using each category's
// hex colour. Categories without a valid colour are left plain.
func WithColour(enabled bool) Option {
	return func(w *writer) {
		w.colour = enabled
	}
}

type writer struct {
	colour bool
}

// Write renders r to w in the given format.
func Write(w io.Writer, r Report, format Format, opts ...Option) error {
	var cfg writer
	for _, opt := range opts {
		opt(&cfg)
	}

	switch format {
	case FormatText:
		return cfg.text(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func (cfg writer) text(w io.Writer, r Report) error {
	var b strings.Builder
	for _, m := range r.Matches {
		pos := PositionOf(r.Text, m.Range.From)
		fmt.Fprintf(&b, "%s:%s: %s %s %q\n", r.Path, pos, cfg.label(m.Category), m.Annotation, m.SourceText)

		if len(m.Suggestions) > 0 {
			b.WriteString("  -> ")
			b.WriteString(strings.Join(suggestionTexts(m), ", "))
			if m.CanAutoFix {
				b.WriteString(" (auto-fix)")
			}
			b.WriteByte('\n')
		}
	}

	if r.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", r.Error)
	}

	switch len(r.Matches) {
	case 0:
		b.WriteString("no matches\n")
	case 1:
		b.WriteString("1 match\n")
	default:
		fmt.Fprintf(&b, "%d matches\n", len(r.Matches))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (cfg writer) label(c state.Category) string {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	label := "[" + name + "]"
	if !cfg.colour || c.Colour == "" {
		return label
	}
	col, err := colorful.Hex(c.Colour)
	if err != nil {
		return label
	}
	red, green, blue := col.RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", red, green, blue, label)
}

func suggestionTexts(m state.Match) []string {
	out := make([]string, len(m.Suggestions))
	for i, s := range m.Suggestions {
		out[i] = s.Text
	}
	return out
}

type jsonReport struct {
	Path    string      `json:"path"`
	Matches []jsonMatch `json:"matches"`
	Error   string      `json:"error,omitempty"`
}

type jsonMatch struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Start       Position     `json:"start"`
	End         Position     `json:"end"`
	Range       buffer.Range `json:"range"`
	Text        string       `json:"text"`
	Annotation  string       `json:"annotation"`
	Suggestions []string     `json:"suggestions,omitempty"`
	AutoFix     bool         `json:"autoFix,omitempty"`
}

func writeJSON(w io.Writer, r Report) error {
	out := jsonReport{
		Path:    r.Path,
		Matches: make([]jsonMatch, 0, len(r.Matches)),
		Error:   r.Error,
	}
	for _, m := range r.Matches {
		jm := jsonMatch{
			ID:         m.ID,
			Category:   m.Category.ID,
			Start:      PositionOf(r.Text, m.Range.From),
			End:        PositionOf(r.Text, m.Range.To),
			Range:      m.Range,
			Text:       m.SourceText,
			Annotation: m.Annotation,
			AutoFix:    m.CanAutoFix,
		}
		if len(m.Suggestions) > 0 {
			jm.Suggestions = suggestionTexts(m)
		}
		out.Matches = append(out.Matches, jm)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
