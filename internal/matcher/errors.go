package matcher

import "errors"

// Errors returned by matcher operations.
var (
	// ErrUnknownCategory indicates a category ID the checker does not provide.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrNoCategories indicates a check was requested with no active categories.
	ErrNoCategories = errors.New("no categories selected")

	// ErrClosed indicates the service has been closed.
	ErrClosed = errors.New("matcher service closed")
)
