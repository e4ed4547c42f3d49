// Package ircprom exports Prometheus metrics for the chat server. A Collector
// observes socket activity from the reactor and lifecycle events from the
// protocol engine; Serve exposes the registry over HTTP.
package ircprom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/presbrey/ircserv/irc"
	"github.com/presbrey/ircserv/mplex"
)

const namespace = "ircd"

// Collector implements mplex.Observer and records engine events. It is
// driven from the reactor goroutine; the Prometheus types it updates are
// safe for concurrent scraping.
type Collector struct {
	Registry *prometheus.Registry

	connections prometheus.Gauge
	accepted    prometheus.Counter
	closed      prometheus.Counter
	bytesIn     prometheus.Counter
	bytesOut    prometheus.Counter
	frames      prometheus.Counter
	commands    *prometheus.CounterVec
	users       prometheus.Gauge
	channels    prometheus.Gauge
}

var _ mplex.Observer = (*Collector)(nil)

// NewCollector registers the server metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open client connections",
		}),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections",
		}),
		closed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total number of closed connections",
		}),
		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Total number of bytes read from clients",
		}),
		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Total number of bytes written to clients",
		}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames delivered to the engine",
		}),
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of dispatched commands by keyword",
			},
			[]string{"command"},
		),
		users: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_users",
			Help:      "Number of users that completed registration",
		}),
		channels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Number of live channels",
		}),
	}
}

func (c *Collector) ClientAccepted(mplex.Client) {
	c.accepted.Inc()
	c.connections.Inc()
}

func (c *Collector) ClientClosed(mplex.Client) {
	c.closed.Inc()
	c.connections.Dec()
}

func (c *Collector) FrameReceived(mplex.Client) { c.frames.Inc() }

func (c *Collector) BytesRead(n int) { c.bytesIn.Add(float64(n)) }

func (c *Collector) BytesWritten(n int) { c.bytesOut.Add(float64(n)) }

// Attach subscribes the collector to the engine lifecycle hooks.
func (c *Collector) Attach(events *irc.Events) {
	events.Registered.Register(func(*irc.User) error {
		c.users.Inc()
		return nil
	})
	events.Disconnected.Register(func(u *irc.User) error {
		if u.LoggedIn() {
			c.users.Dec()
		}
		return nil
	})
	events.ChannelCreated.Register(func(*irc.Channel) error {
		c.channels.Inc()
		return nil
	})
	events.ChannelRemoved.Register(func(*irc.Channel) error {
		c.channels.Dec()
		return nil
	})
	events.Command.Register(func(e irc.CommandEvent) error {
		// Unknown keywords share one label to bound cardinality.
		name := "unknown"
		if e.Known {
			name = e.Command
		}
		c.commands.WithLabelValues(name).Inc()
		return nil
	})
}
