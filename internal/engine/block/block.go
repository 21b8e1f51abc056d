// Package block defines the unit of text dispatched for checking.
//
// A Block is an immutable snapshot of a contiguous region of the document:
// its text, its range at the time it was created, and the revision it was
// taken from. Blocks are never updated in place. When the document changes
// while a block is out for checking, only the owner's position mapping
// advances; the block keeps its original coordinates.
package block

import (
	"fmt"

	"github.com/dshills/redline/internal/engine/buffer"
)

// Block is a contiguous, independently checkable unit of document text.
type Block struct {
	ID       string
	Text     string
	From     buffer.Offset
	To       buffer.Offset
	Revision buffer.RevisionID
}

// ID returns the deterministic identifier for a block over r taken at rev.
func ID(rev buffer.RevisionID, r buffer.Range) string {
	return fmt.Sprintf("%d-from:%d-to:%d", rev, r.From, r.To)
}

// New creates a block over r, clamped to the document.
func New(doc *buffer.Document, r buffer.Range, rev buffer.RevisionID) Block {
	r = r.Clamp(doc.Len())
	return Block{
		ID:       ID(rev, r),
		Text:     doc.TextRange(r),
		From:     r.From,
		To:       r.To,
		Revision: rev,
	}
}

// Range returns the block's range in the coordinates it was created with.
func (b Block) Range() buffer.Range {
	return buffer.Range{From: b.From, To: b.To}
}

// Span implements buffer.Spanner.
func (b Block) Span() buffer.Range {
	return b.Range()
}

// String returns a short description of the block.
func (b Block) String() string {
	return fmt.Sprintf("block %s %q", b.ID, b.Text)
}

// FromDocument returns one block per paragraph of doc.
func FromDocument(doc *buffer.Document, rev buffer.RevisionID) []Block {
	paragraphs := doc.Paragraphs()
	if len(paragraphs) == 0 {
		return nil
	}
	blocks := make([]Block, len(paragraphs))
	for i, p := range paragraphs {
		blocks[i] = New(doc, p, rev)
	}
	return blocks
}

// FromRanges returns one block per valid range.
func FromRanges(doc *buffer.Document, ranges []buffer.Range, rev buffer.RevisionID) []Block {
	var blocks []Block
	for _, r := range ranges {
		b := New(doc, r, rev)
		if b.Range().IsValid() {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// ExpandFunc widens dirty ranges to the ranges that should be checked.
type ExpandFunc func(ranges []buffer.Range, doc *buffer.Document) []buffer.Range

// ExpandToParagraphs widens each range to cover every paragraph it touches,
// so a one-character edit re-checks the whole paragraph. A range that touches
// no paragraph is kept as is. The result is merged.
func ExpandToParagraphs(ranges []buffer.Range, doc *buffer.Document) []buffer.Range {
	if len(ranges) == 0 {
		return nil
	}
	paragraphs := doc.Paragraphs()
	expanded := make([]buffer.Range, 0, len(ranges))
	for _, r := range ranges {
		r = r.Clamp(doc.Len())
		for _, p := range paragraphs {
			if p.From > r.To {
				break
			}
			if p.Touches(r) {
				r = r.Union(p)
			}
		}
		expanded = append(expanded, r)
	}
	return buffer.MergeRanges(expanded)
}

// Identity returns the ranges unchanged apart from merging.
func Identity(ranges []buffer.Range, _ *buffer.Document) []buffer.Range {
	return buffer.MergeRanges(ranges)
}
