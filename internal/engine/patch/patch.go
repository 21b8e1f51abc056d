// Package patch turns a text replacement into the smallest edits that
// produce it.
//
// Replacing a whole range discards any inline marks inside it. Applying only
// the characters that actually differ keeps marks on the text both versions
// share.
package patch

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/redline/internal/engine/buffer"
)

// FromReplacement returns the edits that turn oldText, located at from, into
// newText. The edits are sequential: each is expressed in the coordinates
// produced by the edits before it.
func FromReplacement(oldText string, from buffer.Offset, newText string) []buffer.Edit {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	var edits []buffer.Edit
	pos := from
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += buffer.Offset(len(d.Text))

		case diffmatchpatch.DiffDelete:
			end := pos + buffer.Offset(len(d.Text))
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := diffs[i+1].Text
				edits = append(edits, buffer.NewReplace(pos, end, ins))
				pos += buffer.Offset(len(ins))
				i++
				continue
			}
			edits = append(edits, buffer.NewDelete(pos, end))

		case diffmatchpatch.DiffInsert:
			edits = append(edits, buffer.NewInsert(pos, d.Text))
			pos += buffer.Offset(len(d.Text))
		}
	}
	return edits
}
