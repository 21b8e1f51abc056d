package state

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/tracking"
)

// Reducer computes state transitions. It is safe for concurrent use.
type Reducer struct {
	expand block.ExpandFunc
	logger *slog.Logger
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithExpandFunc sets how dirty ranges are widened into blocks before a
// request for dirty ranges. The default is block.ExpandToParagraphs.
func WithExpandFunc(f block.ExpandFunc) ReducerOption {
	return func(r *Reducer) {
		if f != nil {
			r.expand = f
		}
	}
}

// WithLogger sets the logger for protocol inconsistencies.
func WithLogger(l *slog.Logger) ReducerOption {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReducer creates a Reducer.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{
		expand: block.ExpandToParagraphs,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce returns the state that follows s after tx and action.
//
// If tx changed the document, every range in s is remapped through
// tx.Mapping before the action is applied. action may be nil.
func (r *Reducer) Reduce(tx tracking.Transaction, s State, action Action) State {
	if tx.DocChanged {
		s = remap(tx, s)
	}
	if action == nil {
		return s
	}

	switch a := action.(type) {
	case NewDirtyRanges:
		return r.newDirtyRanges(tx, s, a)
	case RequestForDirtyRanges:
		ranges := r.expand(s.DirtiedRanges, tx.Doc)
		blocks := block.FromRanges(tx.Doc, ranges, tx.Revision)
		return r.requestStart(s, a.RequestID, blocks, a.CategoryIDs)
	case RequestForDocument:
		blocks := block.FromDocument(tx.Doc, tx.Revision)
		return r.requestStart(s, a.RequestID, blocks, a.CategoryIDs)
	case RequestStart:
		return r.requestStart(s, a.RequestID, a.Blocks, a.CategoryIDs)
	case RequestSuccess:
		return r.requestSuccess(s, a.Response)
	case RequestError:
		return r.requestError(s, a.Error)
	case RequestComplete:
		return r.requestComplete(s, a.RequestID)
	case CancelRequest:
		return r.cancelRequest(s, a)
	case SelectMatch:
		prev := s.SelectedMatchID
		s.SelectedMatchID = a.MatchID
		return s.withMatchAnnotationsRefreshed(prev, a.MatchID)
	case NewHoverID:
		prev := s.HoverID
		s.HoverID = a.MatchID
		s.HoverInfo = a.HoverInfo
		return s.withMatchAnnotationsRefreshed(prev, a.MatchID)
	case NewHighlightID:
		prev := s.HighlightID
		s.HighlightID = a.MatchID
		return s.withMatchAnnotationsRefreshed(prev, a.MatchID)
	case SetConfigValue:
		return r.setConfigValue(s, a)
	case SetFilterState:
		s.Filter = Filter{HiddenCategoryIDs: slices.Clone(a.Filter.HiddenCategoryIDs)}
		return s
	case RemoveMatch:
		return removeMatches(s, func(m Match) bool { return m.ID == a.MatchID })
	case RemoveAllMatches:
		return removeMatches(s, func(Match) bool { return true })
	default:
		r.logger.Warn("unknown action", "action_type", action.Type())
		return s
	}
}

// remap carries every range in s through tx.Mapping and extends the mapping
// of every in-flight request.
func remap(tx tracking.Transaction, s State) State {
	size := tx.Doc.Len()

	s.DirtiedRanges = tracking.MapAndMergeRanges(s.DirtiedRanges, tx.Mapping)

	var matches []Match
	for _, m := range s.Matches {
		r, ok := tx.Mapping.MapRange(m.Range)
		if !ok {
			continue
		}
		r = r.Clamp(size)
		if !r.IsValid() {
			continue
		}
		m.Range = r
		matches = append(matches, m)
	}
	s.Matches = matches

	s.Annotations = s.Annotations.mapped(tx.Mapping, size)

	edited := tx.EditedRanges()
	requests := make(map[string]RequestInFlight, len(s.RequestsInFlight))
	for id, req := range s.RequestsInFlight {
		req.Mapping = req.Mapping.Compose(tx.Mapping)
		req.Edited = buffer.MergeRanges(append(tracking.MapAndMergeRanges(req.Edited, tx.Mapping), edited...))
		requests[id] = req
	}
	s.RequestsInFlight = requests

	return s
}

func (r *Reducer) newDirtyRanges(tx tracking.Transaction, s State, a NewDirtyRanges) State {
	size := tx.Doc.Len()
	ranges := make([]buffer.Range, 0, len(a.Ranges))
	for _, rng := range a.Ranges {
		ranges = append(ranges, rng.Clamp(size))
	}
	ranges = buffer.MergeRanges(ranges)

	// Edited text invalidates prior findings.
	before := len(s.Matches)
	s.Matches = buffer.RemoveOverlapping(s.Matches, ranges, nil)
	annotations := s.Annotations.without(ranges, AnnotationMatch)
	if s.Config.Debug {
		annotations = annotations.withRanges(AnnotationDirty, ranges)
	}
	s.Annotations = annotations

	if s.Config.RequestMatchesOnDocModified {
		s.DirtiedRanges = buffer.MergeRanges(append(slices.Clone(s.DirtiedRanges), ranges...))
		s.RequestPending = true
	} else {
		s.DirtiedRanges = nil
		s.RequestPending = false
	}

	if removed := before - len(s.Matches); removed > 0 {
		r.logger.Debug("matches invalidated by edit", "matches", removed)
	}
	return s
}

func (r *Reducer) requestStart(s State, requestID string, blocks []block.Block, categoryIDs []string) State {
	if s.Config.Debug {
		ranges := blockRanges(blocks)
		s.Annotations = s.Annotations.
			without(ranges, AnnotationDirty).
			withRanges(AnnotationInflight, ranges)
	}

	s.ErrorMessage = ""
	s.DirtiedRanges = nil
	s.RequestPending = false

	if len(blocks) == 0 || len(categoryIDs) == 0 {
		r.logger.Debug("request has no work",
			"request_id", requestID,
			"blocks", len(blocks),
			"categories", len(categoryIDs))
		return s
	}

	pending := make([]BlockInFlight, len(blocks))
	for i, b := range blocks {
		pending[i] = BlockInFlight{
			Block:              b,
			PendingCategoryIDs: slices.Clone(categoryIDs),
		}
	}

	requests := maps.Clone(s.RequestsInFlight)
	if requests == nil {
		requests = map[string]RequestInFlight{}
	}
	if _, exists := requests[requestID]; exists {
		r.logger.Warn("request started twice, replacing", "request_id", requestID)
	}
	requests[requestID] = RequestInFlight{
		TotalBlocks:   len(pending),
		CategoryIDs:   slices.Clone(categoryIDs),
		PendingBlocks: pending,
		Mapping:       tracking.Mapping{},
	}
	s.RequestsInFlight = requests
	return s
}

func (r *Reducer) requestSuccess(s State, resp MatcherResponse) State {
	req, ok := s.RequestsInFlight[resp.RequestID]
	if !ok {
		r.logger.Debug("ignoring response for unknown request", "request_id", resp.RequestID)
		return s
	}

	responseBlockIDs := make([]string, len(resp.Blocks))
	for i, b := range resp.Blocks {
		responseBlockIDs[i] = b.ID
	}
	inflight := blocksInFlightByID(req, responseBlockIDs)
	if len(inflight) == 0 {
		r.logger.Debug("ignoring response with no pending blocks", "request_id", resp.RequestID)
		return s
	}

	// Current ranges of the blocks this response covers.
	var spans []buffer.Range
	blocksByID := make(map[string]block.Block, len(inflight))
	for _, bif := range inflight {
		blocksByID[bif.Block.ID] = bif.Block
		if rng, ok := req.Mapping.MapRange(bif.Block.Range()); ok {
			spans = append(spans, rng)
		}
	}

	// Bring incoming matches into current coordinates.
	var incoming []Match
	incomingIDs := map[string]bool{}
	for i, m := range resp.Matches {
		blockID := m.BlockID
		if blockID == "" && len(resp.Blocks) == 1 {
			blockID = resp.Blocks[0].ID
		}
		b, ok := blocksByID[blockID]
		if !ok {
			r.logger.Debug("dropping match for block not in flight",
				"request_id", resp.RequestID,
				"block_id", blockID)
			continue
		}

		abs := m.Range.Shift(b.From)
		if !abs.IsValid() || !b.Range().ContainsRange(abs) {
			r.logger.Warn("dropping match outside its block",
				"request_id", resp.RequestID,
				"block_id", blockID,
				"range", m.Range.String())
			continue
		}
		mapped, ok := req.Mapping.MapRange(abs)
		if !ok {
			continue
		}
		// Text edited since dispatch: the result is stale, even if a later
		// request has since taken the dirty ranges.
		if buffer.OverlapsAny(mapped, s.DirtiedRanges) || buffer.OverlapsAny(mapped, req.Edited) {
			continue
		}

		m.Range = mapped
		m.BlockID = blockID
		if m.ID == "" {
			m.ID = fmt.Sprintf("%s-%s-%d", resp.RequestID, blockID, i)
		}
		m.Suggestions = slices.Clone(m.Suggestions)
		incoming = append(incoming, m)
		incomingIDs[m.ID] = true
	}

	// New results for a category supersede old results of that category
	// only. Matches over text edited since dispatch were found by a later
	// check and are kept.
	categories := stringSet(resp.CategoryIDs)
	annotations := maps.Clone(s.Annotations)
	if annotations == nil {
		annotations = Annotations{}
	}
	matches := make([]Match, 0, len(s.Matches)+len(incoming))
	for _, m := range s.Matches {
		evicted := categories[m.Category.ID] &&
			buffer.OverlapsAny(m.Range, spans) &&
			!buffer.OverlapsAny(m.Range, req.Edited)
		if evicted || incomingIDs[m.ID] {
			delete(annotations, matchAnnotationID(m.ID))
			continue
		}
		matches = append(matches, m)
	}
	matches = append(matches, incoming...)
	s.Matches = matches

	if s.Config.Debug {
		annotations = annotations.without(spans, AnnotationInflight)
	}
	for _, m := range incoming {
		annotations[matchAnnotationID(m.ID)] = s.matchAnnotation(m)
	}
	s.Annotations = annotations

	blockIDs := make([]string, 0, len(inflight))
	for _, bif := range inflight {
		blockIDs = append(blockIDs, bif.Block.ID)
	}
	s.RequestsInFlight = amendRequestsInFlight(s.RequestsInFlight, resp.RequestID, blockIDs, resp.CategoryIDs)
	return s
}

func (r *Reducer) requestError(s State, e MatchRequestError) State {
	if e.BlockID == "" {
		s.ErrorMessage = e.Message
		return s
	}

	req, ok := s.RequestsInFlight[e.RequestID]
	if !ok {
		r.logger.Debug("ignoring error for unknown request",
			"request_id", e.RequestID,
			"block_id", e.BlockID)
		return s
	}

	bif, ok := singleBlockInFlight(req, e.BlockID)
	if !ok {
		s.ErrorMessage = e.Message
		return s
	}

	// Re-queue the block's current range so it is retried.
	if rng, ok := req.Mapping.MapRange(bif.Block.Range()); ok {
		s.DirtiedRanges = buffer.MergeRanges(append(slices.Clone(s.DirtiedRanges), rng))
		annotations := s.Annotations.without([]buffer.Range{rng}, AnnotationInflight)
		if s.Config.Debug {
			annotations = annotations.withRanges(AnnotationDirty, []buffer.Range{rng})
		}
		s.Annotations = annotations
	}

	categoryIDs := e.CategoryIDs
	if len(categoryIDs) == 0 {
		categoryIDs = bif.PendingCategoryIDs
	}
	s.RequestsInFlight = amendRequestsInFlight(s.RequestsInFlight, e.RequestID, []string{e.BlockID}, categoryIDs)
	s.ErrorMessage = e.Message
	return s
}

func (r *Reducer) requestComplete(s State, requestID string) State {
	req, ok := s.RequestsInFlight[requestID]
	if !ok {
		return s
	}
	if req.hasPendingWork() {
		r.logger.Warn("request marked complete with work remaining",
			"request_id", requestID,
			"pending_blocks", len(req.PendingBlocks))
	}
	requests := maps.Clone(s.RequestsInFlight)
	delete(requests, requestID)
	s.RequestsInFlight = requests
	return s
}

func (r *Reducer) cancelRequest(s State, a CancelRequest) State {
	req, ok := s.RequestsInFlight[a.RequestID]
	if !ok {
		return s
	}

	if a.Requeue {
		var ranges []buffer.Range
		for _, bif := range req.PendingBlocks {
			if rng, ok := req.Mapping.MapRange(bif.Block.Range()); ok {
				ranges = append(ranges, rng)
			}
		}
		if len(ranges) > 0 {
			s.DirtiedRanges = buffer.MergeRanges(append(slices.Clone(s.DirtiedRanges), ranges...))
			s.RequestPending = true
			annotations := s.Annotations.without(ranges, AnnotationInflight)
			if s.Config.Debug {
				annotations = annotations.withRanges(AnnotationDirty, ranges)
			}
			s.Annotations = annotations
		}
	}

	r.logger.Debug("request cancelled",
		"request_id", a.RequestID,
		"pending_blocks", len(req.PendingBlocks),
		"requeue", a.Requeue)

	requests := maps.Clone(s.RequestsInFlight)
	delete(requests, a.RequestID)
	s.RequestsInFlight = requests
	return s
}

func (r *Reducer) setConfigValue(s State, a SetConfigValue) State {
	switch a.Key {
	case ConfigDebug:
		s.Config.Debug = a.Value
		if !a.Value {
			s.Annotations = s.Annotations.
				withoutKind(AnnotationDirty).
				withoutKind(AnnotationInflight)
		}
	case ConfigRequestMatchesOnDocModified:
		s.Config.RequestMatchesOnDocModified = a.Value
	default:
		r.logger.Warn("unknown config key", "key", string(a.Key))
	}
	return s
}

// withMatchAnnotationsRefreshed replaces the annotations of the named matches
// with freshly flagged records.
func (s State) withMatchAnnotationsRefreshed(ids ...string) State {
	annotations := maps.Clone(s.Annotations)
	if annotations == nil {
		annotations = Annotations{}
	}
	for _, id := range ids {
		m, ok := s.matchByID(id)
		if !ok {
			continue
		}
		annotations[matchAnnotationID(id)] = s.matchAnnotation(m)
	}
	s.Annotations = annotations
	return s
}

// removeMatches drops the matches for which remove returns true, along with
// their annotations and any flag that referenced them.
func removeMatches(s State, remove func(Match) bool) State {
	annotations := maps.Clone(s.Annotations)
	if annotations == nil {
		annotations = Annotations{}
	}
	var kept []Match
	for _, m := range s.Matches {
		if !remove(m) {
			kept = append(kept, m)
			continue
		}
		delete(annotations, matchAnnotationID(m.ID))
		if s.SelectedMatchID == m.ID {
			s.SelectedMatchID = ""
		}
		if s.HoverID == m.ID {
			s.HoverID = ""
			s.HoverInfo = nil
		}
		if s.HighlightID == m.ID {
			s.HighlightID = ""
		}
	}
	s.Matches = kept
	s.Annotations = annotations
	return s
}

// amendRequestsInFlight clears categoryIDs from the named blocks of a request.
// Blocks with no pending categories are dropped, and the request is dropped
// once no blocks remain. The input map is not modified.
func amendRequestsInFlight(requests map[string]RequestInFlight, requestID string, blockIDs, categoryIDs []string) map[string]RequestInFlight {
	req, ok := requests[requestID]
	if !ok {
		return requests
	}

	targets := stringSet(blockIDs)
	cleared := stringSet(categoryIDs)

	var pending []BlockInFlight
	for _, bif := range req.PendingBlocks {
		if !targets[bif.Block.ID] {
			pending = append(pending, bif)
			continue
		}
		var remaining []string
		for _, id := range bif.PendingCategoryIDs {
			if !cleared[id] {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) > 0 {
			pending = append(pending, BlockInFlight{Block: bif.Block, PendingCategoryIDs: remaining})
		}
	}

	out := maps.Clone(requests)
	if len(pending) == 0 {
		delete(out, requestID)
		return out
	}
	req.PendingBlocks = pending
	out[requestID] = req
	return out
}

func blockRanges(blocks []block.Block) []buffer.Range {
	ranges := make([]buffer.Range, 0, len(blocks))
	for _, b := range blocks {
		ranges = append(ranges, b.Range())
	}
	return ranges
}
