package regex

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

var (
	wordLength = state.Category{ID: "word-length", Name: "Word length", Colour: "teal"}
	spelling   = state.Category{ID: "spelling", Name: "Spelling", Colour: "red"}
)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func blockOf(text string) block.Block {
	return block.Block{ID: "b", Text: text, From: 10, To: 10 + buffer.Offset(len(text))}
}

func TestNewInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"empty pattern", Rule{ID: "r", Category: spelling}},
		{"missing category", Rule{ID: "r", Pattern: "x"}},
		{"bad pattern", Rule{ID: "r", Pattern: "(unclosed", Category: spelling}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Rule{tt.rule})
			require.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestCategories(t *testing.T) {
	c, err := New([]Rule{
		{ID: "a", Pattern: "a", Category: spelling},
		{ID: "b", Pattern: "b", Category: wordLength},
		{ID: "c", Pattern: "c", Category: spelling},
	})
	require.NoError(t, err)

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []state.Category{spelling, wordLength}, cats)
}

func TestCheck(t *testing.T) {
	c, err := New([]Rule{
		{
			ID:          "three-letters",
			Pattern:     `\b[a-zA-Z]{3}\b`,
			Annotation:  "This word has three letters.",
			Category:    wordLength,
			Suggestions: []string{"grand"},
		},
		{
			ID:          "teh",
			Pattern:     `\bteh\b`,
			Category:    spelling,
			Suggestions: []string{"the"},
			AutoFix:     true,
		},
	}, WithIDFunc(counter()))
	require.NoError(t, err)

	matches, err := c.Check(context.Background(), blockOf("teh quick fox"), []string{"spelling"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, state.Match{
		ID:          "m1",
		Range:       buffer.Range{From: 0, To: 3},
		SourceText:  "teh",
		Category:    spelling,
		Suggestions: []state.Suggestion{{Type: state.TextSuggestion, Text: "the"}},
		CanAutoFix:  true,
	}, matches[0])

	matches, err = c.Check(context.Background(), blockOf("teh quick fox"), []string{"word-length", "spelling"})
	require.NoError(t, err)
	var texts []string
	for _, m := range matches {
		texts = append(texts, m.SourceText)
	}
	assert.Equal(t, []string{"teh", "fox", "teh"}, texts)
}

func TestCheckByteOffsets(t *testing.T) {
	c, err := New([]Rule{{ID: "cafe", Pattern: `caf.`, Category: spelling}})
	require.NoError(t, err)

	text := "Ünïcode café"
	matches, err := c.Check(context.Background(), blockOf(text), []string{"spelling"})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	r := matches[0].Range
	assert.Equal(t, "café", text[r.From:r.To])
}

func TestCheckLookaround(t *testing.T) {
	c, err := New([]Rule{{
		ID:         "very",
		Pattern:    `\bvery(?= (good|bad)\b)`,
		IgnoreCase: true,
		Category:   wordLength,
	}})
	require.NoError(t, err)

	matches, err := c.Check(context.Background(), blockOf("Very good, very nice, very bad"), []string{"word-length"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, buffer.Range{From: 0, To: 4}, matches[0].Range)
	assert.Equal(t, buffer.Range{From: 22, To: 26}, matches[1].Range)
}

func TestCheckAutoFixRequiresSuggestion(t *testing.T) {
	c, err := New([]Rule{{ID: "x", Pattern: "x", Category: spelling, AutoFix: true}})
	require.NoError(t, err)

	matches, err := c.Check(context.Background(), blockOf("x"), []string{"spelling"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].CanAutoFix)
}

func TestCheckCancelled(t *testing.T) {
	c, err := New([]Rule{{ID: "x", Pattern: "x", Category: spelling}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Check(ctx, blockOf("x"), []string{"spelling"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckTimeout(t *testing.T) {
	c, err := New([]Rule{{ID: "slow", Pattern: `(a+)+$`, Category: spelling}}, WithMatchTimeout(time.Millisecond))
	require.NoError(t, err)

	text := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!"
	_, err = c.Check(context.Background(), blockOf(text), []string{"spelling"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule slow")
}
