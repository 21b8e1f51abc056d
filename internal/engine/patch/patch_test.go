package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/buffer"
)

func applyAll(t *testing.T, doc *buffer.Document, edits []buffer.Edit) *buffer.Document {
	t.Helper()
	for _, e := range edits {
		var err error
		doc, _, err = doc.Apply(e)
		require.NoError(t, err)
	}
	return doc
}

func TestFromReplacement(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		old    string
		new    string
		suffix string
	}{
		{"spelling", "The ", "colour", "color", " is red."},
		{"word swap", "", "a bold claim", "the bold claim", ""},
		{"insertion", "x ", "hello", "hello there", " y"},
		{"deletion", "", "very very good", "very good", "!"},
		{"complete rewrite", "[", "abc", "xyz", "]"},
		{"unicode", "¿", "qué tal", "qué pasa", "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := buffer.NewDocument(tt.prefix + tt.old + tt.suffix)
			from := buffer.Offset(len(tt.prefix))

			edits := FromReplacement(tt.old, from, tt.new)
			require.NotEmpty(t, edits)

			got := applyAll(t, doc, edits)
			assert.Equal(t, tt.prefix+tt.new+tt.suffix, got.Text())
		})
	}
}

func TestFromReplacementNoChange(t *testing.T) {
	assert.Nil(t, FromReplacement("same", 3, "same"))
}

func TestFromReplacementTouchesOnlyChangedText(t *testing.T) {
	edits := FromReplacement("colour", 4, "color")
	require.Len(t, edits, 1)
	assert.Equal(t, buffer.NewDelete(8, 9), edits[0])
}

func TestFromReplacementPreservesMarks(t *testing.T) {
	// "bold" carries a strong mark; the match covers "a bold".
	text := "This is a bold claim"
	strong := buffer.Mark{Type: buffer.MarkStrong, Range: buffer.Range{From: 10, To: 14}}
	doc := buffer.NewDocument(text, strong)

	t.Run("minimal patches keep the mark", func(t *testing.T) {
		got := applyAll(t, doc, FromReplacement("a bold", 8, "the bold"))
		assert.Equal(t, "This is the bold claim", got.Text())

		marks := got.Marks()
		require.Len(t, marks, 1)
		assert.Equal(t, "bold", got.TextRange(marks[0].Range))
	})

	t.Run("naive replacement loses the mark", func(t *testing.T) {
		got := applyAll(t, doc, []buffer.Edit{buffer.NewReplace(8, 14, "the bold")})
		assert.Equal(t, "This is the bold claim", got.Text())
		assert.Empty(t, got.Marks())
	})
}
