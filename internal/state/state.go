package state

import (
	"slices"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/tracking"
)

// GeneralError is the default type of a request error.
const GeneralError = "GENERAL_ERROR"

// TextSuggestion is the type of a plain replacement suggestion.
const TextSuggestion = "TEXT_SUGGESTION"

// Category groups matches produced by the same kind of check.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

// Suggestion is a candidate replacement for a match.
type Suggestion struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Match is a finding anchored to a range of the document.
//
// Inside a MatcherResponse, Range is relative to the text of the block named
// by BlockID. Once merged into State, Range is absolute in the current
// document.
type Match struct {
	ID          string       `json:"id"`
	Range       buffer.Range `json:"range"`
	BlockID     string       `json:"blockId,omitempty"`
	SourceText  string       `json:"text"`
	Annotation  string       `json:"annotation"`
	Category    Category     `json:"category"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	CanAutoFix  bool         `json:"autoFix,omitempty"`
}

// Span implements buffer.Spanner.
func (m Match) Span() buffer.Range {
	return m.Range
}

// MatcherResponse carries the results of one or more categories for one or
// more blocks of a request.
type MatcherResponse struct {
	RequestID   string
	Blocks      []block.Block
	CategoryIDs []string
	Matches     []Match
}

// MatchRequestError reports a failed check. An empty BlockID means the
// failure could not be attributed to a block.
type MatchRequestError struct {
	RequestID   string
	BlockID     string
	CategoryIDs []string
	Message     string
	Type        string
}

// BlockInFlight is a dispatched block and the categories that have not yet
// reported for it.
type BlockInFlight struct {
	Block              block.Block
	PendingCategoryIDs []string
}

// RequestInFlight tracks an outstanding request.
type RequestInFlight struct {
	TotalBlocks   int
	CategoryIDs   []string
	PendingBlocks []BlockInFlight

	// Mapping carries positions from the document the blocks were taken
	// from to the current document.
	Mapping tracking.Mapping

	// Edited holds the current ranges of text changed since dispatch.
	// Results that overlap them describe text that no longer exists.
	Edited []buffer.Range
}

// hasPendingWork reports whether any block still has a pending category.
func (r RequestInFlight) hasPendingWork() bool {
	for _, b := range r.PendingBlocks {
		if len(b.PendingCategoryIDs) > 0 {
			return true
		}
	}
	return false
}

// Config holds the reducer's behaviour flags.
type Config struct {
	// Debug adds dirty and inflight annotations.
	Debug bool

	// RequestMatchesOnDocModified accumulates dirty ranges for continuous
	// checking. When false, dirty ranges are discarded.
	RequestMatchesOnDocModified bool
}

// Filter controls which matches are shown.
type Filter struct {
	HiddenCategoryIDs []string
}

// isHidden reports whether matches of the category are filtered out.
func (f Filter) isHidden(categoryID string) bool {
	return slices.Contains(f.HiddenCategoryIDs, categoryID)
}

// HoverInfo describes the rendered element the user is hovering over.
type HoverInfo struct {
	OffsetLeft float64
	OffsetTop  float64
	Height     float64
	RectIndex  int
}

// State is the single source of truth for matches and check bookkeeping.
type State struct {
	Config Config
	Filter Filter

	// Matches in the current document's coordinates.
	Matches []Match

	// DirtiedRanges are sorted, merged and non-touching.
	DirtiedRanges []buffer.Range

	// RequestsInFlight is keyed by request ID. An entry exists only while
	// at least one of its blocks has a pending category.
	RequestsInFlight map[string]RequestInFlight

	SelectedMatchID string
	HoverID         string
	HoverInfo       *HoverInfo
	HighlightID     string

	// RequestPending is true when ranges have been dirtied but not yet sent.
	RequestPending bool

	// ErrorMessage is the most recent error.
	ErrorMessage string

	Annotations Annotations
}

// NewState returns the initial state, optionally seeded with matches.
func NewState(matches ...Match) State {
	s := State{
		RequestsInFlight: map[string]RequestInFlight{},
		Annotations:      Annotations{},
	}
	if len(matches) > 0 {
		s.Matches = append([]Match(nil), matches...)
		for _, m := range s.Matches {
			s.Annotations[matchAnnotationID(m.ID)] = s.matchAnnotation(m)
		}
	}
	return s
}

// matchByID returns the match with the given ID.
func (s State) matchByID(id string) (Match, bool) {
	if id == "" {
		return Match{}, false
	}
	for _, m := range s.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return Match{}, false
}

func stringSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
