package matcher

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/state"
)

// Checker finds matches in blocks of text.
//
// Check returns matches whose ranges are relative to the start of the block
// text. Implementations must be safe for concurrent use.
type Checker interface {
	// Categories lists the categories the checker can report.
	Categories(ctx context.Context) ([]state.Category, error)

	// Check checks b for the given categories.
	Check(ctx context.Context, b block.Block, categoryIDs []string) ([]state.Match, error)
}

// Multi combines checkers. Each category is served by the first checker that
// lists it.
type Multi struct {
	checkers []Checker

	mu     sync.RWMutex
	owners map[string]int
}

// NewMulti combines checkers.
func NewMulti(checkers ...Checker) *Multi {
	return &Multi{checkers: checkers}
}

// Categories returns the categories of every checker, in order, without
// duplicates.
func (m *Multi) Categories(ctx context.Context) ([]state.Category, error) {
	owners := make(map[string]int)
	var all []state.Category
	for i, c := range m.checkers {
		cats, err := c.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("checker %d: %w", i, err)
		}
		for _, cat := range cats {
			if _, ok := owners[cat.ID]; ok {
				continue
			}
			owners[cat.ID] = i
			all = append(all, cat)
		}
	}
	m.mu.Lock()
	m.owners = owners
	m.mu.Unlock()
	return all, nil
}

// Check sends each checker the categories it owns and concatenates the
// results. Categories must have been called first.
func (m *Multi) Check(ctx context.Context, b block.Block, categoryIDs []string) ([]state.Match, error) {
	byChecker := make([][]string, len(m.checkers))
	m.mu.RLock()
	for _, id := range categoryIDs {
		i, ok := m.owners[id]
		if !ok {
			m.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
		}
		byChecker[i] = append(byChecker[i], id)
	}
	m.mu.RUnlock()

	var out []state.Match
	for i, ids := range byChecker {
		if len(ids) == 0 {
			continue
		}
		matches, err := m.checkers[i].Check(ctx, b, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return slices.Clip(out), nil
}
