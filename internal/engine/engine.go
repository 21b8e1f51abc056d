package engine

import (
	"sync"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/tracking"
)

// Re-export commonly used types for convenience.
type (
	// Offset is a byte position in the document.
	Offset = buffer.Offset

	// Range represents a byte range in the document.
	Range = buffer.Range

	// Edit represents an edit operation.
	Edit = buffer.Edit

	// RevisionID uniquely identifies a document revision.
	RevisionID = buffer.RevisionID

	// Transaction describes a sequence of applied edits.
	Transaction = tracking.Transaction
)

// Engine is the host document. It holds the current immutable document and
// produces a Transaction for every applied edit sequence.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Engine struct {
	mu sync.RWMutex

	doc     *buffer.Document
	history *history

	// Configuration
	maxUndoEntries int
	readOnly       bool

	// Initialization
	initContent string
	initMarks   []buffer.Mark
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxUndoEntries: DefaultMaxUndoEntries,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.doc = buffer.NewDocument(e.initContent, e.initMarks...)
	e.history = newHistory(e.maxUndoEntries)
	e.initMarks = nil

	return e
}

// ============================================================================
// Read Operations
// ============================================================================

// Document returns the current document snapshot.
func (e *Engine) Document() *buffer.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Text returns the full document content.
func (e *Engine) Text() string {
	return e.Document().Text()
}

// TextRange returns text in the given range, clamped to the document.
func (e *Engine) TextRange(r Range) string {
	return e.Document().TextRange(r)
}

// Len returns the document length in bytes.
func (e *Engine) Len() Offset {
	return e.Document().Len()
}

// RevisionID returns the revision of the current document.
func (e *Engine) RevisionID() RevisionID {
	return e.Document().Revision()
}

// IsReadOnly returns true if the engine rejects edits.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// ============================================================================
// Write Operations
// ============================================================================

// Begin returns an empty transaction on the current document.
func (e *Engine) Begin() Transaction {
	return tracking.NewTransaction(e.Document())
}

// Apply applies edits in sequence and returns the resulting transaction.
// Each edit is expressed in the coordinates produced by the edits before it.
// If any edit fails, the document is left unchanged.
func (e *Engine) Apply(edits ...Edit) (Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly && len(edits) > 0 {
		return tracking.NewTransaction(e.doc), ErrReadOnly
	}

	tx, err := e.applyLocked(edits)
	if err != nil {
		return tx, err
	}
	if tx.DocChanged {
		e.history.push(tx)
	}
	return tx, nil
}

// applyLocked applies edits and commits the result without touching history.
func (e *Engine) applyLocked(edits []Edit) (Transaction, error) {
	tx, err := tracking.NewTransaction(e.doc).ApplyAll(edits...)
	if err != nil {
		return tx, err
	}
	e.doc = tx.Doc
	return tx, nil
}

// Insert inserts text at offset.
func (e *Engine) Insert(offset Offset, text string) (Transaction, error) {
	return e.Apply(buffer.NewInsert(offset, text))
}

// Delete removes the text between from and to.
func (e *Engine) Delete(from, to Offset) (Transaction, error) {
	return e.Apply(buffer.NewDelete(from, to))
}

// Replace replaces the text between from and to.
func (e *Engine) Replace(from, to Offset, text string) (Transaction, error) {
	return e.Apply(buffer.NewReplace(from, to, text))
}

// ============================================================================
// Undo/Redo Operations
// ============================================================================

// Undo reverts the last applied transaction and returns the transaction that
// performed the revert.
func (e *Engine) Undo() (Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return tracking.NewTransaction(e.doc), ErrReadOnly
	}

	entry, ok := e.history.popUndo()
	if !ok {
		return tracking.NewTransaction(e.doc), ErrNothingToUndo
	}

	tx, err := e.applyLocked(entry.inverse())
	if err != nil {
		e.history.restoreUndo(entry)
		return tx, err
	}
	e.history.pushRedo(entry)
	return tx, nil
}

// Redo re-applies the last undone transaction.
func (e *Engine) Redo() (Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return tracking.NewTransaction(e.doc), ErrReadOnly
	}

	entry, ok := e.history.popRedo()
	if !ok {
		return tracking.NewTransaction(e.doc), ErrNothingToRedo
	}

	tx, err := e.applyLocked(entry.forward())
	if err != nil {
		e.history.pushRedo(entry)
		return tx, err
	}
	e.history.restoreUndo(entry)
	return tx, nil
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.undoCount() > 0
}

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.redoCount() > 0
}

// UndoCount returns the number of available undo operations.
func (e *Engine) UndoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.undoCount()
}

// ClearHistory removes all undo/redo history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.clear()
}
