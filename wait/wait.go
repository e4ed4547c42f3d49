// Package wait blocks until a server started in the background is ready to
// serve. Readiness is checked by a Probe that is retried with a growing
// interval until it succeeds or the deadline passes.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotReady is returned when the deadline passes before a probe succeeds.
// The last probe error is wrapped alongside it.
var ErrNotReady = errors.New("wait: not ready")

// Probe checks readiness once. A nil error means ready.
type Probe func(ctx context.Context) error

type settings struct {
	timeout  time.Duration
	interval time.Duration
	maxDelay time.Duration
}

// Option tunes For.
type Option func(*settings)

// WithTimeout bounds the whole wait. The default is 5s.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithInterval sets the first delay between attempts and the cap the delay
// doubles up to. The defaults are 10ms and 250ms.
func WithInterval(first, max time.Duration) Option {
	return func(s *settings) {
		s.interval = first
		s.maxDelay = max
	}
}

// For runs probe until it succeeds, ctx is done or the timeout passes.
func For(ctx context.Context, probe Probe, opts ...Option) error {
	s := settings{
		timeout:  5 * time.Second,
		interval: 10 * time.Millisecond,
		maxDelay: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	delay := s.interval
	for {
		err := probe(ctx)
		if err == nil {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		case <-timer.C:
		}

		if delay *= 2; s.maxDelay > 0 && delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}
