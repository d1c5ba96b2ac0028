// Package retry implements bounded retries with error classification and
// capped exponential backoff. The clock is injectable so callers can test
// backoff behavior without sleeping.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Action tells Do how to treat a failed attempt.
type Action int

const (
	Stop      Action = iota // permanent error, abort immediately
	Transient               // transient error, retry with backoff
	Throttled               // rate-limited, retry with the throttle backoff
)

// Policy configures a retry loop.
type Policy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration // backoff doubling stops here; zero means uncapped
	ThrottleBackoff time.Duration
	Clock           clockwork.Clock // defaults to the real clock
	OnRetry         func(attempt int, err error, backoff time.Duration)
}

// Classify decides the Action for an error.
type Classify func(err error) Action

// Do runs op until it succeeds, a permanent error occurs, the attempt budget
// is exhausted, or ctx is cancelled.
func Do[T any](ctx context.Context, p Policy, classify Classify, op func() (T, error)) (T, error) {
	var zero T

	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify(err) == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", attempt, err)
		}

		wait := backoff
		if classify(err) == Throttled && p.ThrottleBackoff > 0 {
			wait = p.ThrottleBackoff
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

// PermanentError marks an error that classification declared not worth
// retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
