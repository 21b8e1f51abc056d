// Package editor connects the document engine to the match state.
//
// An Editor owns the Engine that holds the document, the Store that holds
// the match state, and the Reducer that computes transitions. Every change to
// either goes through Dispatch, which applies edits and an optional action as
// a single serialized transition. Observers are notified after the
// transition is committed and the editor lock is released, so an observer may
// dispatch again.
package editor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/redline/internal/engine"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/state"
	"github.com/dshills/redline/internal/store"
)

// Editor is the host for a single document and its matches.
//
// All operations are thread-safe.
type Editor struct {
	mu sync.Mutex

	engine  *engine.Engine
	store   *store.Store
	reducer *state.Reducer
	logger  *slog.Logger

	// Initialization
	engineOpts []engine.Option
	config     state.Config
}

// Option configures an Editor.
type Option func(*Editor)

// WithContent sets the initial document text.
func WithContent(text string, marks ...buffer.Mark) Option {
	return func(e *Editor) {
		e.engineOpts = append(e.engineOpts, engine.WithContent(text), engine.WithMarks(marks...))
	}
}

// WithStore uses an existing store.
func WithStore(s *store.Store) Option {
	return func(e *Editor) {
		e.store = s
	}
}

// WithConfig sets the initial reducer configuration. Ignored when WithStore
// is given.
func WithConfig(cfg state.Config) Option {
	return func(e *Editor) {
		e.config = cfg
	}
}

// WithLogger sets the logger. It is also handed to the reducer and the
// default store.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Editor.
func New(opts ...Option) *Editor {
	e := &Editor{
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.engine = engine.New(e.engineOpts...)
	e.reducer = state.NewReducer(state.WithLogger(e.logger))
	if e.store == nil {
		initial := state.NewState()
		initial.Config = e.config
		e.store = store.New(store.WithInitialState(initial), store.WithLogger(e.logger))
	}
	e.engineOpts = nil

	return e
}

// State returns the current state snapshot.
func (e *Editor) State() state.State {
	return e.store.State()
}

// Document returns the current document snapshot.
func (e *Editor) Document() *buffer.Document {
	return e.engine.Document()
}

// Subscribe registers an observer for every state event.
func (e *Editor) Subscribe(observer store.Observer) *store.Subscription {
	return e.store.Subscribe(observer)
}

// SubscribeType registers an observer for one kind of state event.
func (e *Editor) SubscribeType(t store.EventType, observer store.Observer) *store.Subscription {
	return e.store.SubscribeType(t, observer)
}

// Dispatch applies edits to the document and then action to the state, as
// one transition. Either may be empty. If an edit fails, nothing changes.
func (e *Editor) Dispatch(edits []buffer.Edit, action state.Action) error {
	e.mu.Lock()
	tx, err := e.engine.Apply(edits...)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("dispatch: %w", err)
	}
	events := e.reduceLocked(tx, action)
	e.mu.Unlock()

	e.store.Publish(events...)
	return nil
}

// Insert inserts text at offset as a user edit.
func (e *Editor) Insert(offset buffer.Offset, text string) error {
	return e.Dispatch([]buffer.Edit{buffer.NewInsert(offset, text)}, nil)
}

// Delete removes the text between from and to as a user edit.
func (e *Editor) Delete(from, to buffer.Offset) error {
	return e.Dispatch([]buffer.Edit{buffer.NewDelete(from, to)}, nil)
}

// Replace replaces the text between from and to as a user edit.
func (e *Editor) Replace(from, to buffer.Offset, text string) error {
	return e.Dispatch([]buffer.Edit{buffer.NewReplace(from, to, text)}, nil)
}

// Undo reverts the last edit.
func (e *Editor) Undo() error {
	return e.history(e.engine.Undo)
}

// Redo re-applies the last undone edit.
func (e *Editor) Redo() error {
	return e.history(e.engine.Redo)
}

// Close stops event delivery.
func (e *Editor) Close() {
	e.store.Close()
}

func (e *Editor) history(op func() (engine.Transaction, error)) error {
	e.mu.Lock()
	tx, err := op()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	events := e.reduceLocked(tx, nil)
	e.mu.Unlock()

	e.store.Publish(events...)
	return nil
}

// reduceLocked reduces tx and action into the store. When the document
// changed, the edited ranges are then reported as dirty in a second
// transition. The caller must hold e.mu.
func (e *Editor) reduceLocked(tx tracking.Transaction, action state.Action) []store.Event {
	prev := e.store.State()
	next := e.reducer.Reduce(tx, prev, action)
	events := e.store.Commit(prev, next, action)

	if !tx.DocChanged {
		return events
	}

	ranges := tx.EditedRanges()
	if len(ranges) == 0 {
		return events
	}
	dirty := state.NewDirtyRanges{Ranges: ranges}
	after := e.reducer.Reduce(tracking.NewTransaction(tx.Doc), next, dirty)

	e.logger.Debug("document changed",
		"changes", tx.Mapping.Summary(),
		"delta", tx.Mapping.TotalDelta(),
		"dirty_ranges", len(ranges),
		"revision", tx.Revision)

	return append(events, e.store.Commit(next, after, dirty)...)
}
