//go:build linux

package mplex

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"
)

// Defaults used when the corresponding Option is not given.
const (
	DefaultReadSize    = 512
	DefaultMaxEvents   = 64
	DefaultPollTimeout = 10 * time.Millisecond
)

// Option configures a Server.
type Option func(*Server) error

// WithHost binds the listener to a single IPv4 address instead of all interfaces.
func WithHost(host string) Option {
	return func(s *Server) error {
		if host == "" {
			return nil
		}
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() {
			return fmt.Errorf("%w: invalid IPv4 address %q", ErrSettings, host)
		}
		s.host = ip
		return nil
	}
}

// WithReadSize sets the size of a single read from a client socket.
func WithReadSize(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("%w: read size must be positive", ErrSettings)
		}
		s.readSize = n
		return nil
	}
}

// WithMaxEvents sets how many readiness events one Poll processes at most.
func WithMaxEvents(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("%w: max events must be positive", ErrSettings)
		}
		s.maxEvents = n
		return nil
	}
}

// WithPollTimeout bounds the readiness wait inside Poll.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d < 0 {
			return fmt.Errorf("%w: poll timeout must not be negative", ErrSettings)
		}
		s.pollTimeout = d
		return nil
	}
}

// WithSendQueueLimit caps the bytes queued for a single client. A client
// exceeding it is disconnected at the end of the current Poll. Zero means
// unbounded.
func WithSendQueueLimit(n int) Option {
	return func(s *Server) error {
		if n < 0 {
			return fmt.Errorf("%w: send queue limit must not be negative", ErrSettings)
		}
		s.queueLimit = n
		return nil
	}
}

// WithLogger replaces the default logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) error {
		s.log = l
		return nil
	}
}

// WithObserver installs an Observer for socket level activity.
func WithObserver(o Observer) Option {
	return func(s *Server) error {
		if o != nil {
			s.observer = o
		}
		return nil
	}
}
