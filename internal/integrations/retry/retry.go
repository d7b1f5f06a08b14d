// Package retry runs remote calls under a bounded exponential backoff.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	maxShift          = 20
)

// Policy bounds a retry loop. The n-th retry (n from 0) waits
// BaseDelay*2^n plus jitter in [0, BaseDelay).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Jitter returns a delay in [0, limit). Nil means uniform random.
	Jitter func(limit time.Duration) time.Duration
}

// DefaultPolicy allows three retries starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: defaultMaxRetries, BaseDelay: defaultBaseDelay}
}

// MaxTries is the total number of attempts including the first.
func (p Policy) MaxTries() uint {
	if p.MaxRetries < 0 {
		return 1
	}
	return uint(p.MaxRetries) + 1
}

// Do calls op until it succeeds, the policy is exhausted, op returns a
// backoff.Permanent error, or ctx is done. It reports how many attempts ran.
// Each retry is logged at Warn.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op func() (T, error)) (T, int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := 0
	counted := func() (T, error) {
		attempts++
		return op()
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	res, err := backoff.Retry(ctx, counted,
		backoff.WithBackOff(NewBackOff(p)),
		backoff.WithMaxTries(p.MaxTries()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	return res, attempts, err
}

// jitterBackOff implements backoff.BackOff for Policy.
type jitterBackOff struct {
	base    time.Duration
	jitter  func(limit time.Duration) time.Duration
	attempt int
}

// NewBackOff returns a backoff.BackOff yielding the delays of p.
func NewBackOff(p Policy) backoff.BackOff {
	jitter := p.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	return &jitterBackOff{base: p.BaseDelay, jitter: jitter}
}

func (b *jitterBackOff) NextBackOff() time.Duration {
	shift := b.attempt
	if shift > maxShift {
		shift = maxShift
	}
	b.attempt++
	return b.base<<shift + b.jitter(b.base)
}

func (b *jitterBackOff) Reset() {
	b.attempt = 0
}

func uniformJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
