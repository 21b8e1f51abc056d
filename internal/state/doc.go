// Package state implements the reconciliation engine for matches produced by
// asynchronous checks against a document that keeps changing.
//
// The package is built around an immutable State value and a pure Reducer:
//
//	next := reducer.Reduce(tx, prev, action)
//
// tx is the transaction that produced the current document. When it changed
// the document, every range held by the state (dirty ranges, matches,
// annotations) is remapped first and every in-flight request's mapping is
// extended. The optional action is then applied on top of the remapped state.
//
// # Requests
//
// A request is tracked per block and per category from dispatch until every
// category of every block has reported. Responses may arrive late, out of
// order, or never. Each request keeps the composition of every mapping since
// dispatch, so block-relative results always land on the right text. Results
// for text that has been edited again since dispatch are discarded, and new
// results for a category only evict old results of the same category.
//
// # Selectors
//
// Selectors are pure read-only queries over a State. Rendering and services
// read state only through a State snapshot and the Select functions.
//
// # Thread Safety
//
// State values are never mutated after construction: the reducer copies any
// map or slice it changes. A State may be read from any goroutine. The Reducer
// itself holds no mutable state.
package state
