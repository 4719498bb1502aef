package pagination

import (
	"fmt"
	"time"
)

// Config holds the paginator configuration.
type Config struct {
	// MaxRetries is the total number of attempts per page, including the first.
	MaxRetries int

	// RetryDelay is the fixed wait between two attempts for the same page.
	RetryDelay time.Duration

	// RequestTimeout bounds each single request (0 = no per-request deadline).
	RequestTimeout time.Duration

	// Throttle is the wait between an emitted page and the next request.
	Throttle time.Duration
}

// DefaultConfig returns the default paginator configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     4,
		RetryDelay:     1 * time.Second,
		RequestTimeout: 1 * time.Second,
		Throttle:       200 * time.Millisecond,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be >= 1 (got %d)", ErrInvalidConfig, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must be >= 0 (got %s)", ErrInvalidConfig, c.RetryDelay)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must be >= 0 (got %s)", ErrInvalidConfig, c.RequestTimeout)
	}
	if c.Throttle < 0 {
		return fmt.Errorf("%w: throttle must be >= 0 (got %s)", ErrInvalidConfig, c.Throttle)
	}
	return nil
}
