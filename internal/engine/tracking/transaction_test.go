package tracking

import (
	"errors"
	"slices"
	"testing"

	"github.com/dshills/redline/internal/engine/buffer"
)

func TestTransactionApply(t *testing.T) {
	doc := buffer.NewDocument("hello world")
	tx := NewTransaction(doc)
	if tx.DocChanged {
		t.Error("new transaction should not report a change")
	}
	if !tx.Mapping.IsIdentity() {
		t.Error("new transaction should have the identity mapping")
	}

	next, err := tx.ApplyAll(
		buffer.NewInsert(0, ">> "),
		buffer.NewReplace(9, 14, "there"),
	)
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	if !next.DocChanged {
		t.Error("DocChanged should be true")
	}
	if got := next.Doc.Text(); got != ">> hello there" {
		t.Errorf("Doc.Text() = %q", got)
	}
	if next.Before != doc {
		t.Error("Before should be the starting document")
	}
	if len(next.Changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(next.Changes))
	}
	if next.Revision != next.Doc.Revision() {
		t.Errorf("Revision = %v, want %v", next.Revision, next.Doc.Revision())
	}

	r, ok := next.Mapping.MapRange(buffer.Range{From: 0, To: 5})
	if !ok {
		t.Fatal("MapRange dropped a surviving range")
	}
	if got := next.Doc.TextRange(r); got != "hello" {
		t.Errorf("mapped text = %q, want hello", got)
	}

	if tx.DocChanged {
		t.Error("receiver must not change")
	}
}

func TestTransactionSkipsNoOps(t *testing.T) {
	tx := NewTransaction(buffer.NewDocument("abc"))
	next, err := tx.Apply(buffer.NewInsert(1, ""))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.DocChanged {
		t.Error("empty insert should not change the document")
	}
}

func TestTransactionApplyAllRollsBack(t *testing.T) {
	tx := NewTransaction(buffer.NewDocument("abc"))
	got, err := tx.ApplyAll(buffer.NewInsert(0, "x"), buffer.NewDelete(2, 40))
	if !errors.Is(err, buffer.ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if got.Doc.Text() != "abc" {
		t.Errorf("Doc.Text() = %q, want abc", got.Doc.Text())
	}
	if got.DocChanged {
		t.Error("failed transaction should not report a change")
	}
}

func TestEditedRanges(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		edits []buffer.Edit
		want  []buffer.Range
	}{
		{
			name:  "insert",
			text:  "hello world",
			edits: []buffer.Edit{buffer.NewInsert(5, ",")},
			want:  []buffer.Range{{From: 5, To: 6}},
		},
		{
			name:  "delete marks both sides",
			text:  "hello world",
			edits: []buffer.Edit{buffer.NewDelete(5, 6)},
			want:  []buffer.Range{{From: 4, To: 6}},
		},
		{
			name:  "delete at start is clamped",
			text:  "hello",
			edits: []buffer.Edit{buffer.NewDelete(0, 2)},
			want:  []buffer.Range{{From: 0, To: 1}},
		},
		{
			name:  "replace",
			text:  "hello world",
			edits: []buffer.Edit{buffer.NewReplace(6, 11, "there")},
			want:  []buffer.Range{{From: 6, To: 11}},
		},
		{
			name: "earlier changes are mapped forward",
			text: "hello world",
			edits: []buffer.Edit{
				buffer.NewInsert(11, "!"),
				buffer.NewInsert(0, ">> "),
			},
			want: []buffer.Range{{From: 0, To: 3}, {From: 14, To: 15}},
		},
		{
			name: "overlapping changes merge",
			text: "abcdef",
			edits: []buffer.Edit{
				buffer.NewInsert(3, "XY"),
				buffer.NewInsert(4, "Z"),
			},
			want: []buffer.Range{{From: 3, To: 6}},
		},
		{
			name: "no edits",
			text: "abc",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewTransaction(buffer.NewDocument(tt.text)).ApplyAll(tt.edits...)
			if err != nil {
				t.Fatalf("ApplyAll: %v", err)
			}
			if got := tx.EditedRanges(); !slices.Equal(got, tt.want) {
				t.Errorf("EditedRanges = %v, want %v", got, tt.want)
			}
		})
	}
}
