package imaging

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultAttemptTimeout bounds a single analyzer call.
	DefaultAttemptTimeout = 5 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
)

// Resilient decorates an analyzer with a rate limit, a per-attempt timeout
// and exponential backoff retries.
type Resilient struct {
	// next is the wrapped analyzer.
	next Analyzer
	// limiter throttles attempts; nil means unlimited.
	limiter *rate.Limiter
	// attemptTimeout bounds every attempt; zero disables it.
	attemptTimeout time.Duration
	// maxRetries is the number of retries after the first attempt.
	maxRetries uint64
	// newBackOff creates the retry schedule of one call.
	newBackOff func() backoff.BackOff
}

// ResilientOption configures Resilient.
type ResilientOption func(*Resilient)

// WithAttemptTimeout overrides DefaultAttemptTimeout.
func WithAttemptTimeout(timeout time.Duration) ResilientOption {
	return func(r *Resilient) {
		r.attemptTimeout = timeout
	}
}

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(retries uint64) ResilientOption {
	return func(r *Resilient) {
		r.maxRetries = retries
	}
}

// WithRateLimit allows rps attempts per second with the given burst.
func WithRateLimit(rps float64, burst int) ResilientOption {
	return func(r *Resilient) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithBackOff replaces the exponential schedule, mostly for tests.
func WithBackOff(newBackOff func() backoff.BackOff) ResilientOption {
	return func(r *Resilient) {
		if newBackOff != nil {
			r.newBackOff = newBackOff
		}
	}
}

// NewResilient wraps next.
func NewResilient(next Analyzer, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		next:           next,
		attemptTimeout: DefaultAttemptTimeout,
		maxRetries:     DefaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second

			return b
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ContainsTarget calls the wrapped analyzer until it succeeds, fails permanently,
// runs out of retries or ctx is done.
func (r *Resilient) ContainsTarget(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error) {
	attempt := func() (bool, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return false, backoff.Permanent(err)
			}
		}

		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		return r.next.ContainsTarget(attemptCtx, image, confidenceThreshold)
	}

	notify := func(err error, wait time.Duration) {
		logger.WarnKV(ctx, "Image analysis failed, retrying", "error", err, "retry_in", wait.String())
	}

	schedule := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)

	return backoff.RetryNotifyWithData(attempt, schedule, notify)
}

func (r *Resilient) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.attemptTimeout)
}
