package irc

import (
	"fmt"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/mplex"
)

const testPassword = "abc"

// fakeTransport records outgoing lines per connection and behaves like the
// reactor on disconnect: the engine is notified synchronously and later
// sends to the connection are dropped.
type fakeTransport struct {
	engine *Server
	out    map[uuid.UUID][]string
	closed map[uuid.UUID]bool
}

func (f *fakeTransport) SendTo(c mplex.Client, msg string) {
	if f.closed[c.ID()] {
		return
	}
	for _, line := range strings.SplitAfter(msg, mplex.Delimiter) {
		if line != "" {
			f.out[c.ID()] = append(f.out[c.ID()], strings.TrimSuffix(line, mplex.Delimiter))
		}
	}
}

func (f *fakeTransport) Multisend(clients []mplex.Client, msg string) {
	for _, c := range clients {
		f.SendTo(c, msg)
	}
}

func (f *fakeTransport) DisconnectClient(c mplex.Client) {
	if f.closed[c.ID()] {
		return
	}
	f.closed[c.ID()] = true
	f.engine.OnDisconnect(c)
}

type harness struct {
	t      *testing.T
	srv    *Server
	tr     *fakeTransport
	nextFD int
}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Password = testPassword

	tr := &fakeTransport{
		out:    make(map[uuid.UUID][]string),
		closed: make(map[uuid.UUID]bool),
	}
	srv, err := NewServer(tr, cfg)
	require.NoError(t, err)
	srv.now = func() time.Time { return testEpoch }
	tr.engine = srv

	return &harness{t: t, srv: srv, tr: tr, nextFD: 5}
}

func (h *harness) connect() mplex.Client {
	h.nextFD++
	c := mplex.NewClient(h.nextFD, netip.MustParseAddrPort(fmt.Sprintf("127.0.0.1:%d", 40000+h.nextFD)))
	h.srv.OnConnect(c)
	return c
}

func (h *harness) send(c mplex.Client, lines ...string) {
	for _, line := range lines {
		h.srv.OnMessage(mplex.Message{Text: line, Client: c})
	}
}

// drain returns and forgets everything sent to c so far.
func (h *harness) drain(c mplex.Client) []string {
	lines := h.tr.out[c.ID()]
	delete(h.tr.out, c.ID())
	return lines
}

func (h *harness) closed(c mplex.Client) bool {
	return h.tr.closed[c.ID()]
}

// register connects a client and completes registration as nick!nick@host.
func (h *harness) register(nick string) mplex.Client {
	h.t.Helper()
	c := h.connect()
	h.send(c, "PASS "+testPassword, "NICK "+nick, "USER "+nick+" host")
	lines := h.drain(c)
	require.Len(h.t, lines, 4, "welcome burst for %s: %v", nick, lines)
	require.Contains(h.t, lines[0], " 001 "+nick+" ")
	return c
}

// registerIn registers nick and joins it to every channel, draining all
// output produced along the way for every connection given in others.
func (h *harness) registerIn(nick string, channels string, others ...mplex.Client) mplex.Client {
	h.t.Helper()
	c := h.register(nick)
	h.send(c, "JOIN "+channels)
	h.drain(c)
	for _, o := range others {
		h.drain(o)
	}
	return c
}

func (h *harness) channel(name string) *Channel {
	h.t.Helper()
	ch, ok := h.srv.Channel(name)
	require.True(h.t, ok, "channel %s should exist", name)
	return ch
}

// numeric formats a reply line the way the engine does.
func numeric(code int, target, text string) string {
	return fmt.Sprintf(":irc.lemada.hn %03d %s %s", code, target, text)
}
