package buffer

import (
	"fmt"
	"sort"
)

// Range represents a byte range in the document.
// From is inclusive, To is exclusive: [From, To).
type Range struct {
	From Offset `json:"from"` // Inclusive start position
	To   Offset `json:"to"`   // Exclusive end position
}

// NewRange creates a new Range from start and end offsets.
func NewRange(from, to Offset) Range {
	return Range{From: from, To: to}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.From, r.To)
}

// Span returns the range itself, so plain ranges satisfy Spanner.
func (r Range) Span() Range {
	return r
}

// Len returns the length of the range in bytes.
func (r Range) Len() Offset {
	return r.To - r.From
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.From == r.To
}

// IsValid returns true if the range is non-empty and ordered (From < To).
// Every range held by the annotation engine must be valid.
func (r Range) IsValid() bool {
	return r.From < r.To
}

// Contains returns true if the given offset is within the range.
func (r Range) Contains(offset Offset) bool {
	return offset >= r.From && offset < r.To
}

// ContainsRange returns true if the given range is entirely within this range.
func (r Range) ContainsRange(other Range) bool {
	return other.From >= r.From && other.To <= r.To
}

// Overlaps returns true if this range overlaps with another range.
func (r Range) Overlaps(other Range) bool {
	return r.From < other.To && other.From < r.To
}

// Touches returns true if the ranges overlap or are adjacent.
func (r Range) Touches(other Range) bool {
	return r.From <= other.To && other.From <= r.To
}

// Union returns the smallest range that contains both ranges.
func (r Range) Union(other Range) Range {
	return Range{From: min(r.From, other.From), To: max(r.To, other.To)}
}

// Shift returns a new range shifted by the given delta.
func (r Range) Shift(delta Offset) Range {
	return Range{From: r.From + delta, To: r.To + delta}
}

// Clamp returns the range restricted to [0, size).
func (r Range) Clamp(size Offset) Range {
	from := min(max(r.From, 0), size)
	to := min(max(r.To, from), size)
	return Range{From: from, To: to}
}

// Spanner is implemented by anything anchored to a document range.
type Spanner interface {
	Span() Range
}

// MergeRanges sorts ranges by From and collapses overlapping or touching
// ranges into the minimal set of covering ranges. Invalid ranges are dropped.
// The input slice is not modified, and MergeRanges(MergeRanges(r)) equals
// MergeRanges(r).
func MergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.IsValid() {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.From <= last.To {
			if r.To > last.To {
				last.To = r.To
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// FindOverlapping returns the index of the first range in ranges that
// overlaps r, or -1 if there is none.
func FindOverlapping(r Range, ranges []Range) int {
	for i, candidate := range ranges {
		if r.Overlaps(candidate) {
			return i
		}
	}
	return -1
}

// OverlapsAny reports whether r overlaps any of ranges.
func OverlapsAny(r Range, ranges []Range) bool {
	return FindOverlapping(r, ranges) != -1
}

// RemoveOverlapping returns the items that do not overlap any of ranges.
// When keep is non-nil, an overlapping item for which keep returns true is
// retained; this scopes removal to a subset of items (for example, only
// items of the categories that were just re-checked).
func RemoveOverlapping[T Spanner](items []T, ranges []Range, keep func(T) bool) []T {
	if len(items) == 0 {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !OverlapsAny(item.Span(), ranges) || (keep != nil && keep(item)) {
			out = append(out, item)
		}
	}
	return out
}
