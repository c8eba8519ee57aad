package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a cache backend that could not be reached. The CLI treats
// it as fatal for the redis backend.
var ErrNetwork = errors.New("cache backend unreachable")

// RetryableError marks a transient backend failure, such as a Redis PING
// that timed out while the server was starting.
type RetryableError struct{ Err error }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryDelays is the wait before each retry; its length bounds the retries.
var retryDelays = []time.Duration{500 * time.Millisecond, time.Second}

// RetryWithBackoff calls fn until it succeeds, returns an error not marked
// [Retryable], or the retry schedule runs out. The last error is returned.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	err := fn()
	for _, delay := range retryDelays {
		if err == nil || !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		err = fn()
	}
	return err
}
