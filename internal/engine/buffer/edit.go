package buffer

import "fmt"

// Edit represents a text edit operation.
// It specifies a range to replace and the new text.
type Edit struct {
	Range   Range  // The range to replace
	NewText string // The replacement text
}

// NewEdit creates a new Edit.
func NewEdit(r Range, newText string) Edit {
	return Edit{Range: r, NewText: newText}
}

// NewInsert creates an Edit that inserts text at a position.
func NewInsert(offset Offset, text string) Edit {
	return Edit{
		Range:   Range{From: offset, To: offset},
		NewText: text,
	}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(from, to Offset) Edit {
	return Edit{
		Range:   Range{From: from, To: to},
		NewText: "",
	}
}

// NewReplace creates an Edit that replaces a range with new text.
func NewReplace(from, to Offset, text string) Edit {
	return Edit{
		Range:   Range{From: from, To: to},
		NewText: text,
	}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.From, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range.String())
	}
	return fmt.Sprintf("Replace%s with %q", e.Range.String(), e.NewText)
}

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Delta returns the change in document length caused by this edit.
func (e Edit) Delta() Offset {
	return Offset(len(e.NewText)) - e.Range.Len()
}

// ChangeType categorizes the type of change made to the document.
type ChangeType uint8

const (
	ChangeInsert  ChangeType = iota // Text was inserted
	ChangeDelete                    // Text was deleted
	ChangeReplace                   // Text was replaced
)

// String returns a string representation of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change records a single applied edit. It is also the position map of that
// edit: any offset valid before the change can be carried to the
// corresponding offset after it.
type Change struct {
	Type     ChangeType // Type of change
	Range    Range      // Range affected, in the OLD document
	NewRange Range      // Range of the inserted text, in the NEW document
	OldText  string     // Text that was removed (for delete/replace)
	NewText  string     // Text that was added (for insert/replace)
}

// NewChange builds the Change for replacing r (whose current content is
// oldText) with newText.
func NewChange(r Range, oldText, newText string) Change {
	ct := ChangeReplace
	switch {
	case r.IsEmpty():
		ct = ChangeInsert
	case newText == "":
		ct = ChangeDelete
	}
	return Change{
		Type:     ct,
		Range:    r,
		NewRange: Range{From: r.From, To: r.From + Offset(len(newText))},
		OldText:  oldText,
		NewText:  newText,
	}
}

// Delta returns the byte delta of this change.
func (c Change) Delta() Offset {
	return c.NewRange.Len() - c.Range.Len()
}

// MapResult is the outcome of carrying a position through a change.
type MapResult struct {
	// Pos is the mapped position.
	Pos Offset

	// Deleted is true when the original position was strictly inside
	// text that the change removed.
	Deleted bool
}

// MapResult carries pos through the change.
//
// Positions before the change are unaffected and positions after it shift by
// Delta. A position on the boundary of a non-empty replaced range stays
// outside that range. A position exactly at a pure insertion point uses assoc
// to pick a side: AssocBefore keeps it before the inserted text, AssocAfter
// moves it past.
func (c Change) MapResult(pos Offset, assoc int) MapResult {
	from, to := c.Range.From, c.Range.To
	switch {
	case pos < from:
		return MapResult{Pos: pos}
	case pos > to:
		return MapResult{Pos: pos + c.Delta()}
	}

	side := assoc
	if from != to {
		if pos == from {
			side = AssocBefore
		} else if pos == to {
			side = AssocAfter
		}
	}
	deleted := pos > from && pos < to
	if side < 0 {
		return MapResult{Pos: from, Deleted: deleted}
	}
	return MapResult{Pos: c.NewRange.To, Deleted: deleted}
}

// Map carries pos through the change. See MapResult.
func (c Change) Map(pos Offset, assoc int) Offset {
	return c.MapResult(pos, assoc).Pos
}

// Invert returns the inverse change that would undo this change.
func (c Change) Invert() Change {
	return NewChange(c.NewRange, c.NewText, c.OldText)
}

// ToEdit converts a Change to an Edit for reapplication.
func (c Change) ToEdit() Edit {
	return Edit{
		Range:   c.Range,
		NewText: c.NewText,
	}
}
