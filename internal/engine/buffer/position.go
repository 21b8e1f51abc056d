package buffer

import "sync/atomic"

// Offset represents a byte position in the document.
// This is the fundamental position type, directly indexing into the text.
type Offset = int64

// RevisionID uniquely identifies a document revision.
// Each modification to the document creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}

// Association controls which side of an insertion a position sticks to when
// the insertion happens exactly at that position.
const (
	// AssocBefore keeps the position before inserted text.
	AssocBefore = -1

	// AssocAfter moves the position past inserted text.
	AssocAfter = 1
)
