// Package engine provides the host document for the annotation engine.
//
// The Engine owns the current buffer.Document and turns edits into
// tracking.Transactions, which are the only way document changes reach the
// reconciliation reducer.
//
// # Architecture
//
// The engine is built on two sub-packages:
//
//   - buffer: immutable documents, ranges, marks and edits
//   - tracking: position mappings and transactions
//
// Two helper packages build on them:
//
//   - block: the unit of text sent for checking
//   - patch: minimal edits derived from a text replacement
//
// # Thread Safety
//
// All Engine operations are thread-safe. Reads take a read lock and return
// immutable documents, so callers can use the result without holding any
// lock.
//
// # Basic Usage
//
//	e := engine.New(engine.WithContent("Hello, World!"))
//
//	// Apply edits; each is in the coordinates produced by the one before
//	tx, err := e.Apply(
//	    buffer.NewReplace(7, 12, "Go"),
//	    buffer.NewInsert(0, "> "),
//	)
//
//	// tx.Mapping carries positions from tx.Before to tx.Doc
//	pos := tx.Mapping.Map(7, buffer.AssocAfter) // 9
//
//	// Undo returns the transaction that reverted the edits
//	undoTx, err := e.Undo()
//
// # Action-only transactions
//
// Begin returns an empty transaction on the current document. It is used to
// feed actions to the reducer when the document did not change.
package engine
