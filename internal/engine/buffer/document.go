package buffer

import "strings"

// Document is an immutable snapshot of document content: the text, its
// inline marks, and the revision that produced it.
//
// Applying an edit never modifies a Document; it returns a new one.
type Document struct {
	text     string
	marks    []Mark
	revision RevisionID
}

// NewDocument creates a document with initial content and marks.
// Invalid or out-of-bounds marks are dropped.
func NewDocument(text string, marks ...Mark) *Document {
	d := &Document{
		text:     text,
		revision: NewRevisionID(),
	}
	size := Offset(len(text))
	for _, m := range marks {
		m.Range = m.Range.Clamp(size)
		if m.Range.IsValid() {
			d.marks = append(d.marks, m)
		}
	}
	sortMarks(d.marks)
	return d
}

// Text returns the full document content.
func (d *Document) Text() string {
	return d.text
}

// Len returns the total byte length of the document.
func (d *Document) Len() Offset {
	return Offset(len(d.text))
}

// IsEmpty returns true if the document has no content.
func (d *Document) IsEmpty() bool {
	return len(d.text) == 0
}

// Revision returns the revision that produced this document.
func (d *Document) Revision() RevisionID {
	return d.revision
}

// TextRange returns the text in r, clamped to the document bounds.
func (d *Document) TextRange(r Range) string {
	r = r.Clamp(d.Len())
	return d.text[r.From:r.To]
}

// Marks returns a copy of the document's marks, ordered by position.
func (d *Document) Marks() []Mark {
	if len(d.marks) == 0 {
		return nil
	}
	out := make([]Mark, len(d.marks))
	copy(out, d.marks)
	return out
}

// Apply applies a single edit, returning the resulting document and the
// change that describes it. Marks are carried through the change; a mark
// whose text is entirely removed is dropped.
func (d *Document) Apply(e Edit) (*Document, Change, error) {
	if e.Range.From < 0 || e.Range.From > e.Range.To {
		return nil, Change{}, ErrRangeInvalid
	}
	if e.Range.To > d.Len() {
		return nil, Change{}, ErrOffsetOutOfRange
	}

	oldText := d.text[e.Range.From:e.Range.To]
	change := NewChange(e.Range, oldText, e.NewText)

	var b strings.Builder
	b.Grow(len(d.text) + len(e.NewText) - len(oldText))
	b.WriteString(d.text[:e.Range.From])
	b.WriteString(e.NewText)
	b.WriteString(d.text[e.Range.To:])

	next := &Document{
		text:     b.String(),
		revision: NewRevisionID(),
	}
	for _, m := range d.marks {
		if mapped, ok := m.mapThrough(change); ok {
			next.marks = append(next.marks, mapped)
		}
	}
	sortMarks(next.marks)

	return next, change, nil
}

// Paragraphs returns the ranges of the document's structural blocks: the
// maximal runs of text that contain no newline. Empty lines produce no range.
func (d *Document) Paragraphs() []Range {
	var out []Range
	start := Offset(0)
	for i := 0; i <= len(d.text); i++ {
		if i == len(d.text) || d.text[i] == '\n' {
			end := Offset(i)
			if end > start {
				out = append(out, Range{From: start, To: end})
			}
			start = end + 1
		}
	}
	return out
}
