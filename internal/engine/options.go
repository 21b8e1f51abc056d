package engine

import (
	"github.com/dshills/redline/internal/engine/buffer"
)

// DefaultMaxUndoEntries bounds the undo stack.
const DefaultMaxUndoEntries = 1000

// Option configures an Engine during creation.
type Option func(*Engine)

// WithContent sets the initial content of the engine.
func WithContent(content string) Option {
	return func(e *Engine) {
		e.initContent = content
	}
}

// WithMarks sets the initial marks of the document.
func WithMarks(marks ...buffer.Mark) Option {
	return func(e *Engine) {
		e.initMarks = append(e.initMarks, marks...)
	}
}

// WithMaxUndoEntries sets the maximum number of undo history entries.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithReadOnly creates a read-only engine.
// Write operations will return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}
