// Package matcher runs checks for the requests an editor issues.
//
// A Service watches the editor's store. When ranges are dirtied it schedules
// a check for the next throttle window, deferring with exponential backoff
// while earlier blocks are still out. When a request starts it fans the
// request's blocks out to a Checker and feeds results, errors and completion
// back through Commands.
//
// The Service only reads state snapshots and dispatches commands.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/redline/internal/commands"
	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/state"
	"github.com/dshills/redline/internal/store"
)

// Default scheduling parameters.
const (
	DefaultInitialThrottle = 2 * time.Second
	DefaultMaxThrottle     = 16 * time.Second
	DefaultConcurrency     = 4
)

// Host provides state snapshots and change notifications.
type Host interface {
	State() state.State
	SubscribeType(t store.EventType, observer store.Observer) *store.Subscription
}

// Metrics receives checking activity.
type Metrics interface {
	DocumentChecked()
	BlockChecked(d time.Duration, err error)
	MatchesReturned(matches []state.Match)
}

type nopMetrics struct{}

func (nopMetrics) DocumentChecked()                  {}
func (nopMetrics) BlockChecked(time.Duration, error) {}
func (nopMetrics) MatchesReturned([]state.Match)     {}

// Service schedules checks and delivers their results.
//
// All operations are thread-safe.
type Service struct {
	host     Host
	commands *commands.Commands
	checker  Checker
	logger   *slog.Logger
	metrics  Metrics
	newID    func() string

	initialThrottle time.Duration
	maxThrottle     time.Duration
	blockTimeout    time.Duration
	concurrency     int

	mu            sync.Mutex
	allCategories []state.Category
	current       []state.Category
	pending       bool
	throttle      time.Duration
	backoff       *backoff.ExponentialBackOff
	timer         *time.Timer
	closed        bool
	subs          []*store.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics reports checking activity.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithThrottle sets the delay before a scheduled check and the longest delay
// reached while backing off.
func WithThrottle(initial, max time.Duration) Option {
	return func(s *Service) {
		if initial > 0 {
			s.initialThrottle = initial
		}
		if max > 0 {
			s.maxThrottle = max
		}
	}
}

// WithConcurrency limits how many blocks are checked at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBlockTimeout bounds each Check call. Zero means no limit.
func WithBlockTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.blockTimeout = d
	}
}

// WithIDFunc sets the request ID generator.
func WithIDFunc(f func() string) Option {
	return func(s *Service) {
		if f != nil {
			s.newID = f
		}
	}
}

// NewService creates a service and subscribes it to host.
func NewService(host Host, cmds *commands.Commands, checker Checker, opts ...Option) *Service {
	s := &Service{
		host:            host,
		commands:        cmds,
		checker:         checker,
		logger:          slog.New(slog.DiscardHandler),
		metrics:         nopMetrics{},
		newID:           uuid.NewString,
		initialThrottle: DefaultInitialThrottle,
		maxThrottle:     DefaultMaxThrottle,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxThrottle < s.initialThrottle {
		s.maxThrottle = s.initialThrottle
	}

	s.backoff = backoff.NewExponentialBackOff()
	s.backoff.InitialInterval = s.initialThrottle
	s.backoff.MaxInterval = s.maxThrottle
	s.backoff.Multiplier = 2
	s.backoff.RandomizationFactor = 0
	s.backoff.Reset()
	s.throttle = s.initialThrottle

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.subs = []*store.Subscription{
		host.SubscribeType(store.EventNewDirtyRanges, func(store.Event) { s.schedule() }),
		host.SubscribeType(store.EventNewRequest, s.onNewRequest),
	}
	return s
}

// FetchCategories loads the categories the checker provides.
func (s *Service) FetchCategories(ctx context.Context) ([]state.Category, error) {
	cats, err := s.checker.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	s.mu.Lock()
	s.allCategories = slices.Clone(cats)
	s.mu.Unlock()
	return cats, nil
}

// CurrentCategories returns the categories checks are requested for.
func (s *Service) CurrentCategories() []state.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.current)
}

// AddCategory enables a fetched category. Adding an active category is a
// no-op.
func (s *Service) AddCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.allCategories, func(c state.Category) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	if slices.ContainsFunc(s.current, func(c state.Category) bool { return c.ID == id }) {
		return nil
	}
	s.current = append(s.current, s.allCategories[i])
	return nil
}

// RemoveCategory disables a category.
func (s *Service) RemoveCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = slices.DeleteFunc(s.current, func(c state.Category) bool { return c.ID == id })
}

// CheckDocument requests a check of the whole document for the current
// categories. It returns the request ID, or an error if there is nothing to
// check with or the request was rejected.
func (s *Service) CheckDocument() (string, error) {
	s.mu.Lock()
	closed := s.closed
	ids := s.categoryIDsLocked()
	s.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("check document: %w", ErrNoCategories)
	}

	id := s.newID()
	if !s.commands.RequestMatchesForDocument(id, ids) {
		return "", fmt.Errorf("check document: request %s rejected", id)
	}
	if s.requeueIfClosed(id) {
		return "", ErrClosed
	}
	s.metrics.DocumentChecked()
	return id, nil
}

// RequestMatches requests a check of the dirty ranges. If blocks are still
// in flight, the check is deferred to the next throttle window, which grows
// with each deferral up to the maximum.
func (s *Service) RequestMatches() {
	st := s.host.State()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = false
	if len(state.SelectAllBlocksInFlight(st)) > 0 {
		s.throttle = s.backoff.NextBackOff()
		s.logger.Debug("blocks in flight, deferring check", "throttle", s.throttle)
		s.scheduleLocked()
		s.mu.Unlock()
		return
	}
	s.backoff.Reset()
	s.throttle = s.initialThrottle
	ids := s.categoryIDsLocked()
	s.mu.Unlock()

	if len(ids) == 0 {
		s.logger.Debug("no categories selected, skipping check")
		return
	}
	if len(st.DirtiedRanges) == 0 {
		return
	}
	id := s.newID()
	if s.commands.RequestMatchesForDirtyRanges(id, ids) {
		s.requeueIfClosed(id)
	}
}

// requeueIfClosed cancels a request dispatched while the service was
// closing, since no handler is left to check it. The request's blocks go
// back to the dirty ranges.
func (s *Service) requeueIfClosed(requestID string) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.commands.CancelRequest(requestID, true)
	}
	return closed
}

// Wait blocks until all running checks have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops scheduling, cancels running checks and waits for them.
// Cancelled requests are re-queued as dirty ranges.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Service) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

func (s *Service) scheduleLocked() {
	if s.pending || s.closed {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.throttle, s.RequestMatches)
}

func (s *Service) categoryIDsLocked() []string {
	ids := make([]string, len(s.current))
	for i, c := range s.current {
		ids[i] = c.ID
	}
	return ids
}

func (s *Service) onNewRequest(e store.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.commands.CancelRequest(e.Request.RequestID, true)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.check(s.ctx, e.Request)
	}()
}

// check fans the request's blocks out to the checker, then marks the
// request complete. A cancelled request is re-queued instead.
func (s *Service) check(ctx context.Context, req state.NewRequest) {
	s.logger.Debug("checking request",
		"request_id", req.RequestID,
		"blocks", len(req.Blocks),
		"categories", req.CategoryIDs)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, b := range req.Blocks {
		g.Go(func() error {
			s.checkBlock(ctx, req, b)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		s.logger.Debug("request cancelled", "request_id", req.RequestID)
		s.commands.CancelRequest(req.RequestID, true)
		return
	}
	s.commands.ApplyRequestComplete(req.RequestID)
}

func (s *Service) checkBlock(ctx context.Context, req state.NewRequest, b block.Block) {
	if ctx.Err() != nil {
		return
	}

	checkCtx := ctx
	if s.blockTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, s.blockTimeout)
		defer cancel()
	}

	start := time.Now()
	matches, err := s.checker.Check(checkCtx, b, req.CategoryIDs)
	s.metrics.BlockChecked(time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("block check failed",
			"request_id", req.RequestID,
			"block_id", b.ID,
			"error", err)
		s.commands.ApplyRequestError(state.MatchRequestError{
			RequestID:   req.RequestID,
			BlockID:     b.ID,
			CategoryIDs: req.CategoryIDs,
			Message:     err.Error(),
		})
		return
	}

	s.metrics.MatchesReturned(matches)
	for i := range matches {
		matches[i].BlockID = b.ID
	}
	s.commands.ApplyMatcherResponse(state.MatcherResponse{
		RequestID:   req.RequestID,
		Blocks:      []block.Block{b},
		CategoryIDs: req.CategoryIDs,
		Matches:     matches,
	})
}
