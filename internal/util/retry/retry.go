// Package retry provides bounded retry with backoff for operations that
// depend on flaky externals, typically package index refreshes over the
// network.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	OnRetry     func(attempt int, err error)
}

// Option is a functional option for retry configuration.
type Option func(*Config)

// Do executes the operation with a fixed delay between attempts. It
// stops on the first success, when MaxAttempts is exhausted, or when
// the error is marked Fatal. Context cancellation is respected while
// waiting between attempts.
func Do(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := &Config{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("not retrying: %w", err)
		}

		if attempt < cfg.MaxAttempts {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("cancelled after %d attempt(s): %w", attempt, ctx.Err())
			case <-time.After(cfg.Delay):
			}
		}
	}

	return fmt.Errorf("failed after %d attempt(s): %w", cfg.MaxAttempts, lastErr)
}

// WithMaxAttempts sets the total number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithDelay sets the fixed delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(c *Config) { c.Delay = d }
}

// WithOnRetry installs a hook invoked before each backoff wait.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// FatalError wraps an error to mark it as non-retryable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks whether an error is marked non-retryable.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
