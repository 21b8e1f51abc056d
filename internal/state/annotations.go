package state

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/tracking"
)

// AnnotationKind identifies what an annotation marks.
type AnnotationKind uint8

const (
	// AnnotationMatch marks a match.
	AnnotationMatch AnnotationKind = iota

	// AnnotationDirty marks a dirty range (debug only).
	AnnotationDirty

	// AnnotationInflight marks a block out for checking (debug only).
	AnnotationInflight
)

// String returns the kind name.
func (k AnnotationKind) String() string {
	switch k {
	case AnnotationMatch:
		return "match"
	case AnnotationDirty:
		return "dirty"
	case AnnotationInflight:
		return "inflight"
	default:
		return "unknown"
	}
}

// Annotation is a renderer-facing record marking a range. Annotations are
// derived from matches and check bookkeeping; they are never a source of
// truth. A record is replaced, never modified, when its flags change.
type Annotation struct {
	ID          string
	Kind        AnnotationKind
	Range       buffer.Range
	MatchID     string
	CategoryID  string
	Selected    bool
	Hovered     bool
	Highlighted bool
}

// Span implements buffer.Spanner.
func (a Annotation) Span() buffer.Range {
	return a.Range
}

// Annotations is a table of annotations keyed by ID.
type Annotations map[string]Annotation

// Sorted returns the annotations ordered by position, then ID.
func (a Annotations) Sorted() []Annotation {
	out := make([]Annotation, 0, len(a))
	for _, ann := range a {
		out = append(out, ann)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.From != out[j].Range.From {
			return out[i].Range.From < out[j].Range.From
		}
		if out[i].Range.To != out[j].Range.To {
			return out[i].Range.To < out[j].Range.To
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// OfKind returns the annotations of one kind, ordered by position.
func (a Annotations) OfKind(kind AnnotationKind) []Annotation {
	var out []Annotation
	for _, ann := range a.Sorted() {
		if ann.Kind == kind {
			out = append(out, ann)
		}
	}
	return out
}

// mapped returns a new table with every range mapped through m. Annotations
// whose text was deleted are dropped.
func (a Annotations) mapped(m tracking.Mapping, size buffer.Offset) Annotations {
	out := make(Annotations, len(a))
	for id, ann := range a {
		r, ok := m.MapRange(ann.Range)
		if !ok {
			continue
		}
		r = r.Clamp(size)
		if !r.IsValid() {
			continue
		}
		ann.Range = r
		out[id] = ann
	}
	return out
}

// without returns a copy of the table with the annotations of the given kinds
// that overlap any of ranges removed.
func (a Annotations) without(ranges []buffer.Range, kinds ...AnnotationKind) Annotations {
	out := maps.Clone(a)
	if out == nil {
		out = Annotations{}
	}
	if len(ranges) == 0 {
		return out
	}
	for id, ann := range out {
		if !slices.Contains(kinds, ann.Kind) {
			continue
		}
		if buffer.OverlapsAny(ann.Range, ranges) {
			delete(out, id)
		}
	}
	return out
}

// withoutKind returns a copy of the table with every annotation of kind removed.
func (a Annotations) withoutKind(kind AnnotationKind) Annotations {
	out := make(Annotations, len(a))
	for id, ann := range a {
		if ann.Kind != kind {
			out[id] = ann
		}
	}
	return out
}

func matchAnnotationID(matchID string) string {
	return "match:" + matchID
}

func rangeAnnotationID(kind AnnotationKind, r buffer.Range) string {
	return fmt.Sprintf("%s:%d-%d", kind, r.From, r.To)
}

// matchAnnotation builds the annotation for m with flags taken from s.
func (s State) matchAnnotation(m Match) Annotation {
	return Annotation{
		ID:          matchAnnotationID(m.ID),
		Kind:        AnnotationMatch,
		Range:       m.Range,
		MatchID:     m.ID,
		CategoryID:  m.Category.ID,
		Selected:    m.ID == s.SelectedMatchID,
		Hovered:     m.ID == s.HoverID,
		Highlighted: m.ID == s.HighlightID,
	}
}

// rangeAnnotation builds a debug annotation.
func rangeAnnotation(kind AnnotationKind, r buffer.Range) Annotation {
	return Annotation{
		ID:    rangeAnnotationID(kind, r),
		Kind:  kind,
		Range: r,
	}
}

// withRanges returns a copy of the table with a debug annotation of kind
// added for each range.
func (a Annotations) withRanges(kind AnnotationKind, ranges []buffer.Range) Annotations {
	out := maps.Clone(a)
	if out == nil {
		out = Annotations{}
	}
	for _, r := range ranges {
		if r.IsValid() {
			ann := rangeAnnotation(kind, r)
			out[ann.ID] = ann
		}
	}
	return out
}
