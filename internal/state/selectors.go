package state

import (
	"sort"

	"github.com/dshills/redline/internal/engine/block"
)

// BlockQuery is one in-flight block together with its pending categories.
type BlockQuery struct {
	RequestID   string
	Block       block.Block
	CategoryIDs []string
}

// NewRequest describes a request that appeared between two states.
type NewRequest struct {
	RequestID   string
	Blocks      []block.Block
	CategoryIDs []string
}

// SelectRequestInFlight returns the in-flight request with the given ID.
func SelectRequestInFlight(s State, requestID string) (RequestInFlight, bool) {
	req, ok := s.RequestsInFlight[requestID]
	return req, ok
}

// SelectSingleBlockInFlight returns one pending block of a request.
func SelectSingleBlockInFlight(s State, requestID, blockID string) (BlockInFlight, bool) {
	req, ok := s.RequestsInFlight[requestID]
	if !ok {
		return BlockInFlight{}, false
	}
	return singleBlockInFlight(req, blockID)
}

// SelectBlocksInFlightByID returns the pending blocks of a request whose IDs
// are in blockIDs, in request order.
func SelectBlocksInFlightByID(s State, requestID string, blockIDs []string) []BlockInFlight {
	req, ok := s.RequestsInFlight[requestID]
	if !ok {
		return nil
	}
	return blocksInFlightByID(req, blockIDs)
}

// SelectAllBlocksInFlight returns every pending block of every request,
// ordered by request ID and then block position.
func SelectAllBlocksInFlight(s State) []BlockQuery {
	var out []BlockQuery
	for _, id := range sortedRequestIDs(s.RequestsInFlight) {
		for _, bif := range s.RequestsInFlight[id].PendingBlocks {
			out = append(out, BlockQuery{
				RequestID:   id,
				Block:       bif.Block,
				CategoryIDs: bif.PendingCategoryIDs,
			})
		}
	}
	return out
}

// SelectPercentRemaining returns the share of dispatched blocks still pending
// across all requests, from 0 to 100.
func SelectPercentRemaining(s State) float64 {
	var total, pending int
	for _, req := range s.RequestsInFlight {
		total += req.TotalBlocks
		pending += len(req.PendingBlocks)
	}
	if total == 0 {
		return 0
	}
	return float64(pending) / float64(total) * 100
}

// SelectMatchByID returns the match with the given ID.
func SelectMatchByID(s State, matchID string) (Match, bool) {
	return s.matchByID(matchID)
}

// SelectImportanceOrderedMatches returns the matches grouped by category and
// ordered by position within each category.
func SelectImportanceOrderedMatches(s State) []Match {
	out := make([]Match, len(s.Matches))
	copy(out, s.Matches)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category.ID != b.Category.ID {
			return a.Category.ID < b.Category.ID
		}
		if a.Range.From != b.Range.From {
			return a.Range.From < b.Range.From
		}
		if a.Range.To != b.Range.To {
			return a.Range.To < b.Range.To
		}
		return a.ID < b.ID
	})
	return out
}

// SelectFilteredMatches returns the matches whose category is not hidden.
func SelectFilteredMatches(s State) []Match {
	var out []Match
	for _, m := range s.Matches {
		if !s.Filter.isHidden(m.Category.ID) {
			out = append(out, m)
		}
	}
	return out
}

// SelectAllAutoFixableMatches returns the matches that can be fixed without
// user input.
func SelectAllAutoFixableMatches(s State) []Match {
	var out []Match
	for _, m := range s.Matches {
		if m.CanAutoFix && len(m.Suggestions) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// SelectHasUncheckedChanges reports whether any edit has not been checked.
func SelectHasUncheckedChanges(s State) bool {
	return len(s.DirtiedRanges) > 0 || s.RequestPending
}

// SelectNewRequestsInFlight returns the requests present in next but not in
// prev, ordered by request ID.
func SelectNewRequestsInFlight(prev, next State) []NewRequest {
	var out []NewRequest
	for _, id := range sortedRequestIDs(next.RequestsInFlight) {
		if _, existed := prev.RequestsInFlight[id]; existed {
			continue
		}
		req := next.RequestsInFlight[id]
		blocks := make([]block.Block, len(req.PendingBlocks))
		for i, bif := range req.PendingBlocks {
			blocks[i] = bif.Block
		}
		out = append(out, NewRequest{
			RequestID:   id,
			Blocks:      blocks,
			CategoryIDs: req.CategoryIDs,
		})
	}
	return out
}

func singleBlockInFlight(req RequestInFlight, blockID string) (BlockInFlight, bool) {
	for _, bif := range req.PendingBlocks {
		if bif.Block.ID == blockID {
			return bif, true
		}
	}
	return BlockInFlight{}, false
}

func blocksInFlightByID(req RequestInFlight, blockIDs []string) []BlockInFlight {
	ids := stringSet(blockIDs)
	var out []BlockInFlight
	for _, bif := range req.PendingBlocks {
		if ids[bif.Block.ID] {
			out = append(out, bif)
		}
	}
	return out
}

func sortedRequestIDs(requests map[string]RequestInFlight) []string {
	ids := make([]string, 0, len(requests))
	for id := range requests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
