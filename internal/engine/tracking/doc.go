// Package tracking carries positions through document edits.
//
// Every range the annotation engine holds refers to exactly one document
// revision. When the document changes, the ranges must be remapped before
// they can be compared with anything computed against the new revision. This
// package provides the primitives for that:
//
//   - [Mapping]: an immutable, ordered list of changes that maps positions
//     from one revision to a later one
//   - [Transaction]: the inbound edit event, pairing the documents before and
//     after a sequence of edits with the mapping between them
//
// # Usage
//
// Build a transaction from a document and apply edits to it:
//
//	tx := tracking.NewTransaction(doc)
//	tx, err := tx.Apply(buffer.NewInsert(0, "Hello "))
//
//	// Carry a range computed against doc into tx.Doc
//	r, ok := tx.Mapping.MapRange(buffer.Range{From: 3, To: 7})
//
// # Composition
//
// Mappings compose by concatenation. Mapping a position through m1 and then
// m2 gives the same result as mapping it through m1.Compose(m2). A request
// that is in flight across several transactions keeps one Mapping and extends
// it with each transaction's mapping as it arrives.
//
// # Thread Safety
//
// Mappings and Transactions are values and are never mutated after
// construction. They can be freely shared across goroutines.
package tracking
