package scraper

import "errors"

// Terminal navigation outcomes. ErrNotFound is never retried;
// ErrExhaustedRetries wraps the last retryable error once the attempt
// budget runs out.
var (
	ErrNotFound         = errors.New("page not found")
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
)

// IsNotFound reports whether err is the terminal not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
