package engine

import (
	"time"

	"github.com/dshills/redline/internal/engine/buffer"
)

// historyEntry records the changes of one applied transaction.
type historyEntry struct {
	changes   []buffer.Change
	timestamp time.Time
}

// forward returns the edits that re-apply the entry.
func (h historyEntry) forward() []buffer.Edit {
	edits := make([]buffer.Edit, len(h.changes))
	for i, c := range h.changes {
		edits[i] = c.ToEdit()
	}
	return edits
}

// inverse returns the edits that revert the entry, last change first.
func (h historyEntry) inverse() []buffer.Edit {
	edits := make([]buffer.Edit, 0, len(h.changes))
	for i := len(h.changes) - 1; i >= 0; i-- {
		edits = append(edits, h.changes[i].Invert().ToEdit())
	}
	return edits
}

// history manages undo/redo state. The caller provides locking.
type history struct {
	undoStack  []historyEntry
	redoStack  []historyEntry
	maxEntries int
}

func newHistory(maxEntries int) *history {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxUndoEntries
	}
	return &history{maxEntries: maxEntries}
}

// push records a new transaction and clears the redo stack.
func (h *history) push(tx Transaction) {
	h.restoreUndo(historyEntry{changes: tx.Changes, timestamp: time.Now()})
	h.redoStack = nil
}

// restoreUndo pushes an entry without touching the redo stack.
func (h *history) restoreUndo(entry historyEntry) {
	h.undoStack = append(h.undoStack, entry)
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

func (h *history) popUndo() (historyEntry, bool) {
	if len(h.undoStack) == 0 {
		return historyEntry{}, false
	}
	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	return entry, true
}

func (h *history) pushRedo(entry historyEntry) {
	h.redoStack = append(h.redoStack, entry)
}

func (h *history) popRedo() (historyEntry, bool) {
	if len(h.redoStack) == 0 {
		return historyEntry{}, false
	}
	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	return entry, true
}

func (h *history) undoCount() int { return len(h.undoStack) }
func (h *history) redoCount() int { return len(h.redoStack) }

func (h *history) clear() {
	h.undoStack = nil
	h.redoStack = nil
}
