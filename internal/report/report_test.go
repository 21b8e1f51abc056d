package report

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

const letter = "I recieve teh letter.\nCafé the the end.\n"

var (
	spelling   = state.Category{ID: "spelling", Name: "Spelling", Colour: "#d32f2f"}
	repetition = state.Category{ID: "repetition", Name: "Repetition", Colour: "#f9a825"}
)

func suggest(texts ...string) []state.Suggestion {
	out := make([]state.Suggestion, len(texts))
	for i, t := range texts {
		out[i] = state.Suggestion{Type: state.TextSuggestion, Text: t}
	}
	return out
}

func letterReport() Report {
	doc := buffer.NewDocument(letter)
	s := state.NewState(
		state.Match{
			ID: "m1", Range: buffer.NewRange(2, 9), SourceText: "recieve",
			Annotation: "Possible misspelling.", Category: spelling,
			Suggestions: suggest("receive"), CanAutoFix: true,
		},
		state.Match{
			ID: "m2", Range: buffer.NewRange(10, 13), SourceText: "teh",
			Annotation: "Possible misspelling.", Category: spelling,
			Suggestions: suggest("the"), CanAutoFix: true,
		},
		state.Match{
			ID: "m3", Range: buffer.NewRange(28, 35), SourceText: "the the",
			Annotation: "Repeated word.", Category: repetition,
			Suggestions: suggest("the"),
		},
	)
	return New("letter.txt", doc, s)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func render(t *testing.T, r Report, format Format, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, format, opts...))
	return buf.Bytes()
}

func TestWriteText(t *testing.T) {
	newGoldie(t).Assert(t, "letter-text", render(t, letterReport(), FormatText))
}

func TestWriteJSON(t *testing.T) {
	newGoldie(t).Assert(t, "letter-json", render(t, letterReport(), FormatJSON))
}

func TestWriteEmpty(t *testing.T) {
	r := New("empty.txt", buffer.NewDocument(""), state.NewState())

	g := newGoldie(t)
	g.Assert(t, "empty-text", render(t, r, FormatText))
	g.Assert(t, "empty-json", render(t, r, FormatJSON))
}

func TestWriteError(t *testing.T) {
	s := state.NewState()
	s.ErrorMessage = "checker unavailable"
	r := New("letter.txt", buffer.NewDocument(letter), s)

	out := string(render(t, r, FormatText))
	assert.Equal(t, "error: checker unavailable\nno matches\n", out)

	out = string(render(t, r, FormatJSON))
	assert.Contains(t, out, `"error": "checker unavailable"`)
}

func TestWriteColour(t *testing.T) {
	out := string(render(t, letterReport(), FormatText, WithColour(true)))
	assert.Contains(t, out, "\x1b[38;2;211;47;47m[Spelling]\x1b[0m")

	r := letterReport()
	r.Matches[0].Category.Colour = "not-a-colour"
	out = string(render(t, r, FormatText, WithColour(true)))
	assert.Contains(t, out, "letter.txt:2:6: [Repetition]")
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, letterReport(), Format("xml")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestPositionOf(t *testing.T) {
	tests := []struct {
		name string
		off  buffer.Offset
		want Position
	}{
		{"start", 0, Position{1, 1}},
		{"first line", 10, Position{1, 11}},
		{"newline", 21, Position{1, 22}},
		{"second line", 22, Position{2, 1}},
		{"after multibyte", 28, Position{2, 6}},
		{"end", buffer.Offset(len(letter)), Position{3, 1}},
		{"negative", -4, Position{1, 1}},
		{"past end", 1000, Position{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PositionOf(letter, tt.off))
		})
	}
}

func TestPositionOfCombiningMarks(t *testing.T) {
	// "e" followed by a combining acute accent is one column.
	text := "cafe\u0301 teh"
	assert.Equal(t, Position{1, 6}, PositionOf(text, buffer.Offset(len("cafe\u0301 "))))
}
