// Package retry runs a function again while it fails with a transient error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned when every attempt failed with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Strategy describes a bounded exponential backoff. Each pause is
// Delay * Backoff^(attempt-1) plus up to one Delay of jitter.
type Strategy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

func (s Strategy) pause(attempt int) time.Duration {
	if s.Delay <= 0 {
		return 0
	}

	backoff := s.Backoff
	if backoff < 1 {
		backoff = 1
	}

	d := float64(s.Delay)
	for i := 1; i < attempt; i++ {
		d *= backoff
	}

	return time.Duration(d) + rand.N(s.Delay)
}

// Do calls fn until it succeeds, fails with an error retryable rejects, or
// the attempts run out. The last retryable error is wrapped together with
// ErrExhausted.
func (s Strategy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || !retryable(err) {
			return err
		}

		if attempt == attempts {
			break
		}

		t := time.NewTimer(s.pause(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return fmt.Errorf("%w: %w", ErrExhausted, err)
}
