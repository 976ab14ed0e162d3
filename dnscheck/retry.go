// dnscheck/retry.go
package dnscheck

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// backoff controls how temporary DNS failures are retried.
type backoff struct {
	// Attempts includes the first try. Default: 3.
	Attempts int
	// InitialDelay is the wait before the first retry. Default: 50ms.
	InitialDelay time.Duration
	// MaxDelay caps the wait. Default: 1s.
	MaxDelay time.Duration
	// Multiplier grows the delay after each retry. Default: 2.
	Multiplier float64
	// Jitter spreads each delay by +/- this fraction. Default: 0.1.
	// A negative value turns jitter off.
	Jitter float64
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (b backoff) withDefaults() backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.InitialDelay <= 0 {
		b.InitialDelay = 50 * time.Millisecond
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = time.Second
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2
	}
	if b.Jitter == 0 {
		b.Jitter = 0.1
	}
	return b
}

// retry runs fn until it succeeds, returns an error that is not temporary,
// runs out of attempts or ctx is done.
func retry[T any](ctx context.Context, b backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.withDefaults()

	var zero T
	var lastErr error
	delay := b.InitialDelay

	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		}

		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !isTemporary(err) || attempt == b.Attempts {
			break
		}

		wait := jitter(delay, b.Jitter)
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * b.Multiplier)
		if delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return zero, lastErr
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := float64(d) * frac
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}

// isTemporary reports whether a lookup error is worth another attempt.
func isTemporary(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	return false
}

// isNotFound reports an authoritative "no such host" (NXDOMAIN or NODATA).
func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
