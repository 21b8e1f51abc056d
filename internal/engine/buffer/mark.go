package buffer

import (
	"fmt"
	"sort"
)

// Common mark types.
const (
	MarkStrong = "strong"
	MarkEm     = "em"
	MarkCode   = "code"
	MarkLink   = "link"
)

// Mark is inline formatting anchored to a range of the document.
type Mark struct {
	Type  string
	Range Range
}

// String returns a human-readable representation of the mark.
func (m Mark) String() string {
	return fmt.Sprintf("%s%s", m.Type, m.Range.String())
}

// Span implements Spanner.
func (m Mark) Span() Range {
	return m.Range
}

// mapThrough carries the mark through a change. Text inserted exactly at
// either boundary stays outside the mark. The second result is false when the
// change removed all of the marked text.
func (m Mark) mapThrough(c Change) (Mark, bool) {
	r := Range{
		From: c.Map(m.Range.From, AssocAfter),
		To:   c.Map(m.Range.To, AssocBefore),
	}
	if !r.IsValid() {
		return Mark{}, false
	}
	return Mark{Type: m.Type, Range: r}, true
}

// sortMarks orders marks by position, then type.
func sortMarks(marks []Mark) {
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].Range.From != marks[j].Range.From {
			return marks[i].Range.From < marks[j].Range.From
		}
		if marks[i].Range.To != marks[j].Range.To {
			return marks[i].Range.To < marks[j].Range.To
		}
		return marks[i].Type < marks[j].Type
	})
}
