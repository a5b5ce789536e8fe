package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrMalformed        = errors.New("malformed claim")
	ErrBusy             = errors.New("showtime is busy, try again")
	ErrRateLimited      = errors.New("too many claims")
	ErrTokenReused      = errors.New("request token already used for a different claim")
)

// SeatNotFoundError names the first requested label missing from the showtime.
type SeatNotFoundError struct {
	Label string
}

func (e *SeatNotFoundError) Error() string {
	return fmt.Sprintf("seat not found: %s", e.Label)
}

// SeatConflictError names the first requested seat that is not available.
type SeatConflictError struct {
	Label string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat already taken: %s", e.Label)
}

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
