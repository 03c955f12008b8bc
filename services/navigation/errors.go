package navigation

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrActuationFailed marks a backend motion failure. Go-to attempts failing with it are retried.
	ErrActuationFailed = errors.New("actuation failed")

	// ErrLookAtTimeout is returned when a look-at does not settle in time. It is a cancellation,
	// not a failure.
	ErrLookAtTimeout = errors.New("look-at did not settle in time")

	// ErrTooManyAttempts is the terminal failure of a retrying go-to.
	ErrTooManyAttempts = errors.New("too many go-to attempts")

	// ErrInvalidTarget is returned for a target frame that is missing or cannot be located.
	ErrInvalidTarget = errors.New("invalid target frame")

	// ErrTooManyStops is returned when a go-to-marker loop does not reach its final approach.
	ErrTooManyStops = errors.New("too many intermediate stops")
)

// IsCancellation reports whether err is a cooperative stop rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrLookAtTimeout)
}
