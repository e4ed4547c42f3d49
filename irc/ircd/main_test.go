//go:build linux

package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/wait"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestArgs(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"6667"},
		{"6667", "pw", "extra"},
		{"port", "pw"},
		{"66a", "pw"},
		{"70000", "pw"},
		{"-1", "pw"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(&strings.Builder{})
		cmd.SetErr(&strings.Builder{})
		assert.Error(t, cmd.Execute(), "args %q", args)
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.Password = "secret"
	cfg.Heartbeat.IntervalSeconds = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	require.NoError(t, wait.For(ctx, wait.IRC(addr)))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("PASS secret\r\nNICK alice\r\nUSER alice host\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":irc.lemada.hn 001 alice :Welcome to our single-server IRC network, alice!alice@host\r\n", line)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRunServesMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.Password = "secret"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()
	defer func() {
		cancel()
		<-done
	}()

	base := "http://" + net.JoinHostPort(cfg.Metrics.Host, strconv.Itoa(cfg.Metrics.Port))
	require.NoError(t, wait.For(ctx, wait.HTTP(base+"/healthz", http.StatusOK)))

	// The readiness check itself sends a PING.
	require.NoError(t, wait.For(ctx, wait.IRC(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))))

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "ircd_connections_accepted_total")
	assert.Contains(t, string(body), `ircd_commands_total{command="PING"}`)
}

func TestRunBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.Server.Password = "secret"

	assert.Error(t, run(context.Background(), cfg))
}
