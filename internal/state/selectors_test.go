package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
)

func TestSelectImportanceOrderedMatches(t *testing.T) {
	s := NewState(
		newMatch("s2", style, 10, 12),
		newMatch("g2", grammar, 8, 9),
		newMatch("s1", style, 0, 3),
		newMatch("g1", grammar, 1, 4),
	)

	ordered := SelectImportanceOrderedMatches(s)

	assert.Equal(t, []string{"g1", "g2", "s1", "s2"}, matchIDs(ordered))
	assert.Equal(t, "s2", s.Matches[0].ID, "input order is kept")
}

func TestSelectMatchByID(t *testing.T) {
	s := NewState(newMatch("m1", grammar, 0, 3))

	m, ok := SelectMatchByID(s, "m1")
	require.True(t, ok)
	assert.Equal(t, buffer.Range{From: 0, To: 3}, m.Range)

	_, ok = SelectMatchByID(s, "")
	assert.False(t, ok)
}

func TestSelectAllAutoFixableMatches(t *testing.T) {
	fixable := newMatch("fix", grammar, 0, 3)
	fixable.CanAutoFix = true
	fixable.Suggestions = []Suggestion{{Type: "TEXT_SUGGESTION", Text: "the"}}

	noSuggestion := newMatch("empty", grammar, 4, 6)
	noSuggestion.CanAutoFix = true

	manual := newMatch("manual", grammar, 7, 9)
	manual.Suggestions = []Suggestion{{Type: "TEXT_SUGGESTION", Text: "x"}}

	s := NewState(fixable, noSuggestion, manual)

	assert.Equal(t, []string{"fix"}, matchIDs(SelectAllAutoFixableMatches(s)))
}

func TestSelectNewRequestsInFlight(t *testing.T) {
	r := NewReducer()
	doc := buffer.NewDocument("alpha beta\ngamma")
	prev := r.Reduce(noop(doc), NewState(), RequestForDocument{RequestID: "r1", CategoryIDs: []string{"grammar"}})
	next := r.Reduce(noop(doc), prev, RequestForDocument{RequestID: "r2", CategoryIDs: []string{"style"}})

	added := SelectNewRequestsInFlight(prev, next)

	require.Len(t, added, 1)
	assert.Equal(t, "r2", added[0].RequestID)
	assert.Equal(t, []string{"style"}, added[0].CategoryIDs)
	assert.Len(t, added[0].Blocks, 2)
	assert.Empty(t, SelectNewRequestsInFlight(next, next))
}

func TestSelectBlocksInFlight(t *testing.T) {
	r := NewReducer()
	doc := buffer.NewDocument("one\ntwo\nthree")
	blocks := block.FromDocument(doc, doc.Revision())
	s := r.Reduce(noop(doc), NewState(), RequestStart{RequestID: "b", Blocks: blocks[:1], CategoryIDs: []string{"grammar"}})
	s = r.Reduce(noop(doc), s, RequestStart{RequestID: "a", Blocks: blocks[1:], CategoryIDs: []string{"style"}})

	all := SelectAllBlocksInFlight(s)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].RequestID)
	assert.Equal(t, "two", all[0].Block.Text)
	assert.Equal(t, "b", all[2].RequestID)

	byID := SelectBlocksInFlightByID(s, "a", []string{blocks[2].ID, "missing"})
	require.Len(t, byID, 1)
	assert.Equal(t, "three", byID[0].Block.Text)

	assert.Nil(t, SelectBlocksInFlightByID(s, "missing", []string{blocks[0].ID}))
}
