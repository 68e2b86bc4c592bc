package config

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/header"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Client.Verify)
	assert.Equal(t, defaults.MaxRedirects, cfg.Client.MaxRedirects)
	assert.Equal(t, defaults.ToolName, cfg.Telemetry.ServiceName)
	assert.Equal(t, slog.LevelInfo, cfg.Logging.SlogLevel())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "netbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  timeout: 5s
  verify: false
  proxy: socks5h://127.0.0.1:1080
  max_redirects: -1
  resolvers: ["1.1.1.1", "8.8.8.8:53"]
  rate_limit: 2.5
  impersonate: chrome_120
  headers:
    X-Team: infra
logging:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.False(t, cfg.Client.Verify)
	assert.Equal(t, -1, cfg.Client.MaxRedirects)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Client.DialTimeout, cfg.Client.DialTimeout)

	ec := cfg.EngineConfig()
	assert.True(t, ec.InsecureSkipVerify)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8:53"}, ec.Resolvers)
	assert.Equal(t, 2.5, ec.RateLimit)
	assert.Equal(t, "chrome_120", ec.Impersonate)

	h, err := cfg.DefaultHeaders()
	require.NoError(t, err)
	assert.Equal(t, "infra", h.Get("X-Team"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"syntax", "client: [", ErrInvalidConfig},
		{"unknown key", "client:\n  tiemout: 5s\n", ErrInvalidConfig},
		{"negative timeout", "client:\n  timeout: -1s\n", ErrInvalidConfig},
		{"negative rate", "client:\n  rate_limit: -1\n", ErrInvalidConfig},
		{"bad proxy", "client:\n  proxy: ftp://proxy\n", ErrInvalidConfig},
		{"bad profile", "client:\n  impersonate: mosaic\n", ErrInvalidConfig},
		{"bad level", "logging:\n  level: loud\n", ErrInvalidConfig},
		{"bad format", "logging:\n  format: xml\n", ErrInvalidConfig},
		{"telemetry without name", "telemetry:\n  service_name: \"\"\n  metrics_addr: :9090\n", ErrMissingRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefaultHeaders_InvalidName(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Client.Headers = map[string]string{"bad name": "x"}
	_, err := cfg.DefaultHeaders()
	var nameErr *header.InvalidNameError
	assert.ErrorAs(t, err, &nameErr)
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Client.Proxy = "http://proxy:8080"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestParseFlags_OverridesOnlySetFlags(t *testing.T) {
	t.Parallel()

	f, rest, err := ParseFlags("netbridge", []string{
		"-timeout", "3s",
		"-H", "X-A: 1",
		"-header", "X-B:2",
		"-k",
		"fetch", "https://example.com",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "https://example.com"}, rest)

	cfg := Default()
	cfg.Client.Proxy = "http://from-file:8080"
	require.NoError(t, f.Apply(cfg))

	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.False(t, cfg.Client.Verify)
	assert.Equal(t, "http://from-file:8080", cfg.Client.Proxy, "unset flag must not clear file value")
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2"}, cfg.Client.Headers)
}

func TestParseFlags_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := ParseFlags("netbridge", []string{"-H", "no-colon"}, io.Discard)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, _, err = ParseFlags("netbridge", []string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))

	f, _, err := ParseFlags("netbridge", []string{"-log-format", "xml"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, errors.Is(f.Apply(Default()), ErrInvalidConfig))
}
