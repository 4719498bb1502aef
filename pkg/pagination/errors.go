package pagination

import (
	"errors"
	"fmt"
)

// Common errors returned by the paginator.
var (
	// ErrRetryExhausted is matched by every *PaginationError.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a request or sleep.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMalformedPage is returned when a response body is not a JSON array of trade objects.
	ErrMalformedPage = errors.New("malformed page")

	// ErrInvalidConfig is returned by New and Config.Validate.
	ErrInvalidConfig = errors.New("invalid pagination config")
)

// PaginationError reports a page that could not be fetched within the retry budget.
// It unwraps to both ErrRetryExhausted and the last transport error.
type PaginationError struct {
	URL      string
	Cursor   uint64
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *PaginationError) Error() string {
	return fmt.Sprintf("%s after %d attempts (tid %d): %v",
		ErrRetryExhausted, e.Attempts, e.Cursor, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PaginationError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Err}
}

// cancelled wraps a context error so it matches both ErrContextCancelled and the cause.
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrContextCancelled, err)
}
