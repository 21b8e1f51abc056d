// Package store holds the current state snapshot and notifies observers of
// state transitions.
//
// The store replaces ambient global events with an explicit observer
// interface: components subscribe to all events or to a single event type and
// receive typed Event values. Transitions are committed in two steps so that
// the owner can store a snapshot while holding its own lock and deliver the
// resulting events after releasing it:
//
//	events := st.Commit(prev, next, action)
//	mu.Unlock()
//	st.Publish(events...)
package store

import (
	"log/slog"
	"sync"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

// EventType identifies a kind of store event.
type EventType int

const (
	// EventStateChanged is sent for every committed transition.
	EventStateChanged EventType = iota

	// EventNewDirtyRanges is sent when a transition leaves dirty ranges
	// waiting to be checked.
	EventNewDirtyRanges

	// EventNewRequest is sent once per request that appeared in a transition.
	EventNewRequest
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state-changed"
	case EventNewDirtyRanges:
		return "new-dirty-ranges"
	case EventNewRequest:
		return "new-request"
	default:
		return "unknown"
	}
}

// Event describes a committed transition.
type Event struct {
	Type EventType

	// Action that caused the transition. May be nil for edit-only
	// transitions.
	Action state.Action

	// Prev and Next are the snapshots on either side of the transition.
	Prev state.State
	Next state.State

	// Ranges holds the dirty ranges for EventNewDirtyRanges.
	Ranges []buffer.Range

	// Request is set for EventNewRequest.
	Request state.NewRequest
}

// Observer is called when an event is delivered.
type Observer func(Event)

// Subscription represents an active observer subscription.
type Subscription struct {
	id    uint64
	store *Store
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.store != nil {
		s.store.unsubscribe(s.id)
	}
}

// Store holds the current state and its observers.
type Store struct {
	mu sync.RWMutex

	current state.State

	// Observers that receive every event
	globalObservers map[uint64]Observer

	// Observers for a single event type
	typeObservers map[EventType]map[uint64]Observer

	nextID uint64

	// Asynchronous delivery
	async  bool
	buffer chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	closed bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithAsync delivers events from a dedicated goroutine, in commit order,
// through a buffer of the given size.
func WithAsync(bufferSize int) Option {
	return func(s *Store) {
		if bufferSize > 0 {
			s.async = true
			s.buffer = make(chan Event, bufferSize)
		}
	}
}

// WithInitialState sets the snapshot the store starts with.
func WithInitialState(st state.State) Option {
	return func(s *Store) {
		s.current = st
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store. The initial snapshot is state.NewState() unless
// WithInitialState is given.
func New(opts ...Option) *Store {
	s := &Store{
		current:         state.NewState(),
		globalObservers: make(map[uint64]Observer),
		typeObservers:   make(map[EventType]map[uint64]Observer),
		done:            make(chan struct{}),
		logger:          slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.async {
		s.wg.Add(1)
		go s.processAsync()
	}

	return s
}

// State returns the current snapshot.
func (s *Store) State() state.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers an observer for every event.
func (s *Store) Subscribe(observer Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.globalObservers[id] = observer

	return &Subscription{id: id, store: s}
}

// SubscribeType registers an observer for events of one type.
func (s *Store) SubscribeType(t EventType, observer Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	if s.typeObservers[t] == nil {
		s.typeObservers[t] = make(map[uint64]Observer)
	}
	s.typeObservers[t][id] = observer

	return &Subscription{id: id, store: s}
}

// Commit makes next the current snapshot and returns the events the
// transition from prev produced. Nothing is delivered; pass the events to
// Publish once any caller-held locks are released.
func (s *Store) Commit(prev, next state.State, action state.Action) []Event {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	return Events(prev, next, action)
}

// Publish delivers events to the matching observers.
func (s *Store) Publish(events ...Event) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	for _, e := range events {
		if s.async {
			select {
			case s.buffer <- e:
			case <-s.done:
				return
			}
			continue
		}
		s.deliver(e)
	}
}

// Close shuts down the store. Buffered events are delivered before Close
// returns. It is safe to call Close multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

// Events derives the events of the transition from prev to next.
func Events(prev, next state.State, action state.Action) []Event {
	events := []Event{{
		Type:   EventStateChanged,
		Action: action,
		Prev:   prev,
		Next:   next,
	}}

	if dirtiesRanges(action) && len(next.DirtiedRanges) > 0 {
		events = append(events, Event{
			Type:   EventNewDirtyRanges,
			Action: action,
			Prev:   prev,
			Next:   next,
			Ranges: next.DirtiedRanges,
		})
	}

	for _, req := range state.SelectNewRequestsInFlight(prev, next) {
		events = append(events, Event{
			Type:    EventNewRequest,
			Action:  action,
			Prev:    prev,
			Next:    next,
			Request: req,
		})
	}

	return events
}

// dirtiesRanges reports whether action can add dirty ranges.
func dirtiesRanges(action state.Action) bool {
	switch a := action.(type) {
	case state.NewDirtyRanges:
		return true
	case state.RequestError:
		return a.Error.BlockID != ""
	case state.CancelRequest:
		return a.Requeue
	default:
		return false
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.globalObservers, id)

	for t, observers := range s.typeObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(s.typeObservers, t)
		}
	}
}

// deliver sends an event to all matching observers.
func (s *Store) deliver(e Event) {
	s.mu.RLock()
	observers := make([]Observer, 0, len(s.globalObservers)+len(s.typeObservers[e.Type]))
	for _, obs := range s.globalObservers {
		observers = append(observers, obs)
	}
	for _, obs := range s.typeObservers[e.Type] {
		observers = append(observers, obs)
	}
	s.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		s.call(obs, e)
	}
}

// call runs one observer, logging rather than propagating a panic.
func (s *Store) call(obs Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panicked", "event", e.Type.String(), "panic", r)
		}
	}()
	obs(e)
}

// processAsync handles asynchronous delivery.
func (s *Store) processAsync() {
	defer s.wg.Done()

	for {
		select {
		case e := <-s.buffer:
			s.deliver(e)
		case <-s.done:
			// Drain remaining buffered events
			for {
				select {
				case e := <-s.buffer:
					s.deliver(e)
				default:
					return
				}
			}
		}
	}
}
