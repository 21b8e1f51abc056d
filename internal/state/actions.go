package state

import (
	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
)

// ActionType names an action for logging.
type ActionType string

// Action types.
const (
	ActionNewDirtyRanges        ActionType = "new-dirty-ranges"
	ActionRequestForDirtyRanges ActionType = "request-for-dirty-ranges"
	ActionRequestForDocument    ActionType = "request-for-document"
	ActionRequestStart          ActionType = "request-start"
	ActionRequestSuccess        ActionType = "request-success"
	ActionRequestError          ActionType = "request-error"
	ActionRequestComplete       ActionType = "request-complete"
	ActionCancelRequest         ActionType = "cancel-request"
	ActionSelectMatch           ActionType = "select-match"
	ActionNewHoverID            ActionType = "new-hover-id"
	ActionNewHighlightID        ActionType = "new-highlight-id"
	ActionSetConfigValue        ActionType = "set-config-value"
	ActionSetFilterState        ActionType = "set-filter-state"
	ActionRemoveMatch           ActionType = "remove-match"
	ActionRemoveAllMatches      ActionType = "remove-all-matches"
)

// Action is a message applied by the Reducer. The set of actions is closed:
// only the types in this package implement it.
type Action interface {
	Type() ActionType
	isAction()
}

// NewDirtyRanges reports ranges edited since they were last checked.
type NewDirtyRanges struct {
	Ranges []buffer.Range
}

// RequestForDirtyRanges starts a request for the current dirty ranges,
// expanded to blocks.
type RequestForDirtyRanges struct {
	RequestID   string
	CategoryIDs []string
}

// RequestForDocument starts a request for every block of the document.
type RequestForDocument struct {
	RequestID   string
	CategoryIDs []string
}

// RequestStart starts a request for the given blocks.
type RequestStart struct {
	RequestID   string
	Blocks      []block.Block
	CategoryIDs []string
}

// RequestSuccess merges a matcher response.
type RequestSuccess struct {
	Response MatcherResponse
}

// RequestError records a failed check.
type RequestError struct {
	Error MatchRequestError
}

// RequestComplete signals that a request has fully resolved.
type RequestComplete struct {
	RequestID string
}

// CancelRequest abandons a request. With Requeue, the ranges of its pending
// blocks become dirty again.
type CancelRequest struct {
	RequestID string
	Requeue   bool
}

// SelectMatch marks a match as selected.
type SelectMatch struct {
	MatchID string
}

// NewHoverID records the match under the pointer. An empty MatchID stops
// hovering.
type NewHoverID struct {
	MatchID   string
	HoverInfo *HoverInfo
}

// NewHighlightID records the highlighted match. An empty MatchID stops
// highlighting.
type NewHighlightID struct {
	MatchID string
}

// ConfigKey names a Config field.
type ConfigKey string

// Config keys.
const (
	ConfigDebug                       ConfigKey = "debug"
	ConfigRequestMatchesOnDocModified ConfigKey = "requestMatchesOnDocModified"
)

// SetConfigValue replaces one Config field.
type SetConfigValue struct {
	Key   ConfigKey
	Value bool
}

// SetFilterState replaces the filter.
type SetFilterState struct {
	Filter Filter
}

// RemoveMatch removes a single match.
type RemoveMatch struct {
	MatchID string
}

// RemoveAllMatches removes every match.
type RemoveAllMatches struct{}

func (NewDirtyRanges) Type() ActionType        { return ActionNewDirtyRanges }
func (RequestForDirtyRanges) Type() ActionType { return ActionRequestForDirtyRanges }
func (RequestForDocument) Type() ActionType    { return ActionRequestForDocument }
func (RequestStart) Type() ActionType          { return ActionRequestStart }
func (RequestSuccess) Type() ActionType        { return ActionRequestSuccess }
func (RequestError) Type() ActionType          { return ActionRequestError }
func (RequestComplete) Type() ActionType       { return ActionRequestComplete }
func (CancelRequest) Type() ActionType         { return ActionCancelRequest }
func (SelectMatch) Type() ActionType           { return ActionSelectMatch }
func (NewHoverID) Type() ActionType            { return ActionNewHoverID }
func (NewHighlightID) Type() ActionType        { return ActionNewHighlightID }
func (SetConfigValue) Type() ActionType        { return ActionSetConfigValue }
func (SetFilterState) Type() ActionType        { return ActionSetFilterState }
func (RemoveMatch) Type() ActionType           { return ActionRemoveMatch }
func (RemoveAllMatches) Type() ActionType      { return ActionRemoveAllMatches }

func (NewDirtyRanges) isAction()        {}
func (RequestForDirtyRanges) isAction() {}
func (RequestForDocument) isAction()    {}
func (RequestStart) isAction()          {}
func (RequestSuccess) isAction()        {}
func (RequestError) isAction()          {}
func (RequestComplete) isAction()       {}
func (CancelRequest) isAction()         {}
func (SelectMatch) isAction()           {}
func (NewHoverID) isAction()            {}
func (NewHighlightID) isAction()        {}
func (SetConfigValue) isAction()        {}
func (SetFilterState) isAction()        {}
func (RemoveMatch) isAction()           {}
func (RemoveAllMatches) isAction()      {}
