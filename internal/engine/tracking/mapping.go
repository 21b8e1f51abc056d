package tracking

import (
	"fmt"
	"strings"

	"github.com/dshills/redline/internal/engine/buffer"
)

// Mapping maps positions through an ordered sequence of changes.
// The zero value is the identity mapping.
type Mapping struct {
	changes []buffer.Change
}

// NewMapping creates a mapping from changes in application order.
func NewMapping(changes ...buffer.Change) Mapping {
	if len(changes) == 0 {
		return Mapping{}
	}
	out := make([]buffer.Change, len(changes))
	copy(out, changes)
	return Mapping{changes: out}
}

// Append returns a new mapping with the changes added after the existing
// ones. The receiver is not modified.
func (m Mapping) Append(changes ...buffer.Change) Mapping {
	if len(changes) == 0 {
		return m
	}
	out := make([]buffer.Change, 0, len(m.changes)+len(changes))
	out = append(out, m.changes...)
	out = append(out, changes...)
	return Mapping{changes: out}
}

// Compose returns the mapping that applies m and then next.
func (m Mapping) Compose(next Mapping) Mapping {
	return m.Append(next.changes...)
}

// Len returns the number of changes.
func (m Mapping) Len() int {
	return len(m.changes)
}

// IsIdentity returns true if the mapping moves no positions.
func (m Mapping) IsIdentity() bool {
	return len(m.changes) == 0
}

// MapResult carries pos through every change in order. Deleted is true if
// any step reported the position as deleted.
func (m Mapping) MapResult(pos buffer.Offset, assoc int) buffer.MapResult {
	res := buffer.MapResult{Pos: pos}
	for _, c := range m.changes {
		step := c.MapResult(res.Pos, assoc)
		res.Pos = step.Pos
		res.Deleted = res.Deleted || step.Deleted
	}
	return res
}

// Map carries pos through every change in order.
func (m Mapping) Map(pos buffer.Offset, assoc int) buffer.Offset {
	return m.MapResult(pos, assoc).Pos
}

// MapRange maps r so that text inserted at either edge stays outside it.
// The second result is false when the mapped range is empty, meaning all of
// its text was deleted.
func (m Mapping) MapRange(r buffer.Range) (buffer.Range, bool) {
	mapped := buffer.Range{
		From: m.Map(r.From, buffer.AssocAfter),
		To:   m.Map(r.To, buffer.AssocBefore),
	}
	if !mapped.IsValid() {
		return buffer.Range{}, false
	}
	return mapped, true
}

// TotalDelta returns the total byte delta of all changes.
func (m Mapping) TotalDelta() buffer.Offset {
	var delta buffer.Offset
	for _, c := range m.changes {
		delta += c.Delta()
	}
	return delta
}

// Summary returns a human-readable summary of the changes.
func (m Mapping) Summary() string {
	if m.IsIdentity() {
		return "no changes"
	}

	var inserts, deletes, replaces int
	var insertedBytes, deletedBytes int

	for _, c := range m.changes {
		switch c.Type {
		case buffer.ChangeInsert:
			inserts++
			insertedBytes += len(c.NewText)
		case buffer.ChangeDelete:
			deletes++
			deletedBytes += len(c.OldText)
		case buffer.ChangeReplace:
			replaces++
			insertedBytes += len(c.NewText)
			deletedBytes += len(c.OldText)
		}
	}

	var parts []string
	if inserts > 0 {
		parts = append(parts, fmt.Sprintf("%d inserts (+%d bytes)", inserts, insertedBytes))
	}
	if deletes > 0 {
		parts = append(parts, fmt.Sprintf("%d deletes (-%d bytes)", deletes, deletedBytes))
	}
	if replaces > 0 {
		parts = append(parts, fmt.Sprintf("%d replaces", replaces))
	}

	return strings.Join(parts, ", ")
}

// MapAndMergeRanges maps every range through m, drops the ranges whose text
// was deleted, and merges the rest.
func MapAndMergeRanges(ranges []buffer.Range, m Mapping) []buffer.Range {
	if len(ranges) == 0 {
		return nil
	}
	if m.IsIdentity() {
		return buffer.MergeRanges(ranges)
	}
	mapped := make([]buffer.Range, 0, len(ranges))
	for _, r := range ranges {
		if nr, ok := m.MapRange(r); ok {
			mapped = append(mapped, nr)
		}
	}
	return buffer.MergeRanges(mapped)
}
