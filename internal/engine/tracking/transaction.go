package tracking

import (
	"fmt"

	"github.com/dshills/redline/internal/engine/buffer"
)

// Transaction describes a sequence of edits applied to a document.
//
// A Transaction is a value: Apply returns a new Transaction and leaves the
// receiver untouched. A transaction with no edits is a no-op and is used to
// dispatch actions that do not touch the document.
type Transaction struct {
	// Before is the document the transaction started from.
	Before *buffer.Document

	// Doc is the document after every change.
	Doc *buffer.Document

	// Changes in application order. Each change is expressed in the
	// coordinates produced by the changes before it.
	Changes []buffer.Change

	// Mapping carries positions from Before to Doc.
	Mapping Mapping

	// Revision is the revision of Doc.
	Revision buffer.RevisionID

	// DocChanged is true if at least one change altered the text.
	DocChanged bool
}

// NewTransaction starts an empty transaction on doc.
func NewTransaction(doc *buffer.Document) Transaction {
	return Transaction{
		Before:   doc,
		Doc:      doc,
		Revision: doc.Revision(),
	}
}

// Apply applies one edit, in the coordinates of tx.Doc, and returns the
// extended transaction. No-op edits leave the transaction unchanged.
func (tx Transaction) Apply(e buffer.Edit) (Transaction, error) {
	if e.IsNoOp() {
		return tx, nil
	}
	next, change, err := tx.Doc.Apply(e)
	if err != nil {
		return tx, fmt.Errorf("apply %s: %w", e, err)
	}

	changes := make([]buffer.Change, 0, len(tx.Changes)+1)
	changes = append(changes, tx.Changes...)
	changes = append(changes, change)

	return Transaction{
		Before:     tx.Before,
		Doc:        next,
		Changes:    changes,
		Mapping:    tx.Mapping.Append(change),
		Revision:   next.Revision(),
		DocChanged: true,
	}, nil
}

// ApplyAll applies edits in sequence. If any edit fails, the transaction
// as it stood before the call is returned with the error.
func (tx Transaction) ApplyAll(edits ...buffer.Edit) (Transaction, error) {
	out := tx
	for _, e := range edits {
		var err error
		out, err = out.Apply(e)
		if err != nil {
			return tx, err
		}
	}
	return out, nil
}

// EditedRanges returns the ranges of Doc touched by the changes in tx,
// merged. Inserted text is edited. A deletion marks one byte on either side
// of the point where the text was removed.
func (tx Transaction) EditedRanges() []buffer.Range {
	size := tx.Doc.Len()
	var ranges []buffer.Range
	for i, c := range tx.Changes {
		r := c.NewRange
		if r.IsEmpty() {
			r = buffer.Range{From: r.From - 1, To: r.From + 1}
		}
		rest := NewMapping(tx.Changes[i+1:]...)
		mapped, ok := rest.MapRange(r)
		if !ok {
			continue
		}
		ranges = append(ranges, mapped.Clamp(size))
	}
	return buffer.MergeRanges(ranges)
}
