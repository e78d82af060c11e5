package webhook

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/okudo-collective/daraja-gateway/internal/daraja"
)

// Defaults for onward webhook delivery. The long elapsed ceiling matches
// how long a subscriber endpoint is given to come back before a
// notification is abandoned.
const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = time.Hour
	DefaultMaxElapsed   = 30 * 24 * time.Hour
)

// RetryOptions tunes RetryWithBackoff. Zero values take the defaults.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxElapsed   time.Duration
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = DefaultMaxElapsed
	}
	return o
}

// RetryResult reports the terminal outcome of a delivery loop.
type RetryResult struct {
	Success  bool
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

var clientErrorCode = regexp.MustCompile(`\b4\d\d\b`)

// isPermanent treats 4xx client errors as non-retryable: the subscriber
// actively rejected the payload and re-sending it will not change that.
// Typed gateway errors are checked by status; plain errors fall back to
// scanning the message for a 4xx status token.
func isPermanent(err error) bool {
	var gwErr *daraja.Error
	if errors.As(err, &gwErr) && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500 {
		return true
	}
	return clientErrorCode.MatchString(err.Error())
}

// RetryWithBackoff runs fn until it succeeds, doubling the delay between
// attempts up to MaxDelay and giving up once MaxElapsed has passed or a
// permanent (4xx) failure is seen. It never returns an error; the outcome
// is in the result record. Cancelling ctx aborts the wait immediately.
func RetryWithBackoff(ctx context.Context, fn func(ctx context.Context) error, opts RetryOptions) RetryResult {
	opts = opts.withDefaults()

	start := time.Now()
	delay := opts.InitialDelay
	result := RetryResult{}

	for {
		result.Attempts++
		err := fn(ctx)
		if err == nil {
			result.Success = true
			result.Elapsed = time.Since(start)
			return result
		}
		result.LastErr = err

		if isPermanent(err) {
			result.Elapsed = time.Since(start)
			return result
		}

		if time.Since(start)+delay > opts.MaxElapsed {
			result.Elapsed = time.Since(start)
			return result
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastErr = ctx.Err()
			result.Elapsed = time.Since(start)
			return result
		case <-timer.C:
		}

		delay *= 2
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
}
