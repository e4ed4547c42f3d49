package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "irc.lemada.hn", cfg.Server.Name)
	assert.Equal(t, "1.0", cfg.Server.Version)
	assert.Equal(t, 6667, cfg.Server.Port)
	assert.Equal(t, 512, cfg.Network.ReadSize)
	assert.Equal(t, 64, cfg.Network.MaxEvents)
	assert.Equal(t, 10*time.Millisecond, cfg.PollTimeout())
	assert.Equal(t, 0, cfg.Network.SendQueueLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval())
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Metrics.Host)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Empty(t, cfg.Source)
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"ircd.yaml": "server:\n  name: chat.example.org\n  port: 7000\nnetwork:\n  send_queue_limit: 4096\n",
		"ircd.toml": "[server]\nname = \"chat.example.org\"\nport = 7000\n[network]\nsend_queue_limit = 4096\n",
		"ircd.json": `{"server":{"name":"chat.example.org","port":7000},"network":{"send_queue_limit":4096}}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "chat.example.org", cfg.Server.Name)
			assert.Equal(t, 7000, cfg.Server.Port)
			assert.Equal(t, 4096, cfg.Network.SendQueueLimit)
			assert.Equal(t, 64, cfg.Network.MaxEvents, "unset fields keep their defaults")
			assert.Equal(t, path, cfg.Source)
		})
	}
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ircd.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("server:\n  password: hunter2\n"))
	}))
	defer srv.Close()

	cfg, err := Load(srv.URL + "/ircd.yaml")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Server.Password)

	_, err = Load(srv.URL + "/missing.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IRCD_SERVER_NAME", "env.example.org")
	t.Setenv("IRCD_MAX_EVENTS", "8")
	t.Setenv("IRCD_METRICS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.example.org", cfg.Server.Name)
	assert.Equal(t, 8, cfg.Network.MaxEvents)
	assert.True(t, cfg.Metrics.Enabled)

	t.Setenv("IRCD_READ_SIZE", "lots")
	_, err = Load("")
	assert.ErrorContains(t, err, "IRCD_READ_SIZE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Host = "::1"
	assert.Error(t, cfg.Validate(), "the listener binds IPv4 only")

	cfg = Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Network.ReadSize = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
