// Package buffer provides the immutable document model that the annotation
// engine runs on.
//
// The buffer package provides:
//
//   - Offset and Range: half-open byte intervals [From, To)
//   - Range utilities: merging, overlap detection, overlap removal
//   - Edit and Change: a replace step and the record of an applied step
//   - Mark: inline formatting (e.g. strong) anchored to a range
//   - Document: an immutable text snapshot carrying marks and a revision
//
// Basic usage:
//
//	doc := buffer.NewDocument("Hello, World!")
//
//	// Apply an edit; the original document is unchanged
//	next, change, err := doc.Apply(buffer.NewInsert(7, "Beautiful "))
//
//	// Positions computed against doc can be carried into next
//	pos := change.Map(12, 1) // 22
//
// Ranges:
//
// Every Range is interpreted against exactly one document revision. A range
// computed against an older revision must be remapped (see the tracking
// package) before it is compared with ranges of the current revision.
//
// Thread Safety:
//
// Documents, Ranges, Marks and Changes are values that are never mutated
// after construction, so they may be shared freely across goroutines.
package buffer
