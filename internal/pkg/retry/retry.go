package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultAttempts = 3
	baseDelay       = time.Second
	maxDelay        = 5 * time.Second
)

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks an error as not worth retrying; Do returns it
// (unwrapped) immediately.
func Permanent(err error) error {
	return permanentError{err: err}
}

// Do runs fn up to attempts times with capped exponential backoff
// (1s, 2s, 4s... capped at 5s) between tries. Returns the last error.
func Do(ctx context.Context, attempts int, fn func() error) error {
	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return err
}
