// Package commands packages user and service intents into state actions and
// document edits.
//
// Every command reads the host's current state, builds an action (and, for
// suggestions, the edits that apply them), and dispatches both as a single
// transition. A command returns true when the host accepted the transition.
package commands

import (
	"log/slog"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/patch"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/state"
)

// Host is the document and state owner that commands act on.
type Host interface {
	State() state.State
	Document() *buffer.Document
	Dispatch(edits []buffer.Edit, action state.Action) error
}

// Telemetry receives user feedback on matches.
type Telemetry interface {
	SuggestionAccepted(m state.Match, text string)
	MatchIgnored(m state.Match)
}

// SuggestionOption names a match and the text to replace it with.
type SuggestionOption struct {
	MatchID string
	Text    string
}

// Commands is a palette of commands bound to a Host.
type Commands struct {
	host      Host
	logger    *slog.Logger
	telemetry Telemetry
}

// Option configures Commands.
type Option func(*Commands)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Commands) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTelemetry reports accepted suggestions and ignored matches.
func WithTelemetry(t Telemetry) Option {
	return func(c *Commands) {
		c.telemetry = t
	}
}

// New binds commands to host.
func New(host Host, opts ...Option) *Commands {
	c := &Commands{
		host:   host,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestMatchesForDocument requests matches for every block of the document.
func (c *Commands) RequestMatchesForDocument(requestID string, categoryIDs []string) bool {
	return c.dispatch(state.RequestForDocument{RequestID: requestID, CategoryIDs: categoryIDs})
}

// RequestMatchesForDirtyRanges requests matches for the current dirty ranges.
func (c *Commands) RequestMatchesForDirtyRanges(requestID string, categoryIDs []string) bool {
	return c.dispatch(state.RequestForDirtyRanges{RequestID: requestID, CategoryIDs: categoryIDs})
}

// StartHover indicates the user is hovering over a match.
func (c *Commands) StartHover(matchID string, info *state.HoverInfo) bool {
	return c.dispatch(state.NewHoverID{MatchID: matchID, HoverInfo: info})
}

// StopHover indicates the user is no longer hovering over a match.
func (c *Commands) StopHover() bool {
	return c.dispatch(state.NewHoverID{})
}

// StartHighlight draws attention to a match without further UI.
func (c *Commands) StartHighlight(matchID string) bool {
	return c.dispatch(state.NewHighlightID{MatchID: matchID})
}

// StopHighlight clears the highlighted match.
func (c *Commands) StopHighlight() bool {
	return c.dispatch(state.NewHighlightID{})
}

// SelectMatch marks a match as active. It returns false if the match does
// not exist.
func (c *Commands) SelectMatch(matchID string) bool {
	if _, ok := state.SelectMatchByID(c.host.State(), matchID); !ok {
		return false
	}
	return c.dispatch(state.SelectMatch{MatchID: matchID})
}

// SetConfigValue sets a reducer configuration flag.
func (c *Commands) SetConfigValue(key state.ConfigKey, value bool) bool {
	return c.dispatch(state.SetConfigValue{Key: key, Value: value})
}

// SetFilterState replaces the match filter.
func (c *Commands) SetFilterState(f state.Filter) bool {
	return c.dispatch(state.SetFilterState{Filter: f})
}

// ApplyMatcherResponse merges a matcher response into the state.
func (c *Commands) ApplyMatcherResponse(resp state.MatcherResponse) bool {
	return c.dispatch(state.RequestSuccess{Response: resp})
}

// ApplyRequestError records a failed check. Failed blocks are re-queued as
// dirty ranges so they are sent again with the next request.
func (c *Commands) ApplyRequestError(e state.MatchRequestError) bool {
	if e.Type == "" {
		e.Type = state.GeneralError
	}
	return c.dispatch(state.RequestError{Error: e})
}

// ApplyRequestComplete marks a request as finished.
func (c *Commands) ApplyRequestComplete(requestID string) bool {
	return c.dispatch(state.RequestComplete{RequestID: requestID})
}

// CancelRequest abandons a request. With requeue, its unfinished blocks are
// marked dirty again.
func (c *Commands) CancelRequest(requestID string, requeue bool) bool {
	return c.dispatch(state.CancelRequest{RequestID: requestID, Requeue: requeue})
}

// IgnoreMatch removes a match. It returns false if the match does not exist.
func (c *Commands) IgnoreMatch(matchID string) bool {
	m, ok := state.SelectMatchByID(c.host.State(), matchID)
	if !ok {
		return false
	}
	if !c.dispatch(state.RemoveMatch{MatchID: matchID}) {
		return false
	}
	if c.telemetry != nil {
		c.telemetry.MatchIgnored(m)
	}
	return true
}

// ClearMatches removes every match.
func (c *Commands) ClearMatches() bool {
	return c.dispatch(state.RemoveAllMatches{})
}

// ApplySuggestions replaces the text of each named match. Unknown matches are
// skipped. It returns false if no suggestion could be applied.
func (c *Commands) ApplySuggestions(opts []SuggestionOption) bool {
	s := c.host.State()
	var reps []replacement
	for _, opt := range opts {
		m, ok := state.SelectMatchByID(s, opt.MatchID)
		if !ok {
			continue
		}
		reps = append(reps, replacement{match: m, text: opt.Text})
	}
	return c.applyReplacements(reps)
}

// ApplyAutoFixableSuggestions applies the first suggestion of every match
// that can be fixed without user input.
func (c *Commands) ApplyAutoFixableSuggestions() bool {
	var reps []replacement
	for _, m := range state.SelectAllAutoFixableMatches(c.host.State()) {
		reps = append(reps, replacement{match: m, text: m.Suggestions[0].Text})
	}
	return c.applyReplacements(reps)
}

type replacement struct {
	match state.Match
	text  string
}

// applyReplacements applies every replacement as one transition. Each
// replacement's range is mapped through the replacements before it, and is
// applied as minimal patches so that marks on unchanged text survive.
func (c *Commands) applyReplacements(reps []replacement) bool {
	if len(reps) == 0 {
		return false
	}

	tx := tracking.NewTransaction(c.host.Document())
	var applied []replacement
	for _, rep := range reps {
		if rep.text == "" {
			continue
		}
		r, ok := tx.Mapping.MapRange(rep.match.Range)
		if !ok {
			c.logger.Debug("suggestion target removed by earlier suggestion", "match_id", rep.match.ID)
			continue
		}
		edits := patch.FromReplacement(tx.Doc.TextRange(r), r.From, rep.text)
		next, err := tx.ApplyAll(edits...)
		if err != nil {
			c.logger.Warn("cannot apply suggestion", "match_id", rep.match.ID, "error", err)
			continue
		}
		tx = next
		applied = append(applied, rep)
	}
	if len(applied) == 0 {
		return false
	}

	edits := make([]buffer.Edit, len(tx.Changes))
	for i, ch := range tx.Changes {
		edits[i] = ch.ToEdit()
	}
	if err := c.host.Dispatch(edits, nil); err != nil {
		c.logger.Warn("suggestions rejected", "error", err)
		return false
	}

	if c.telemetry != nil {
		for _, rep := range applied {
			c.telemetry.SuggestionAccepted(rep.match, rep.text)
		}
	}
	return true
}

func (c *Commands) dispatch(action state.Action) bool {
	if err := c.host.Dispatch(nil, action); err != nil {
		c.logger.Warn("command rejected", "action_type", string(action.Type()), "error", err)
		return false
	}
	return true
}
