// Package config loads netbridge configuration from YAML and command-line
// flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/duration"
	"github.com/waftester/netbridge/pkg/engine"
	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/iohelper"
)

// Config is the complete configuration.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ClientConfig mirrors engine.Config in file form.
type ClientConfig struct {
	Timeout             time.Duration     `yaml:"timeout"`
	DialTimeout         time.Duration     `yaml:"dial_timeout"`
	TLSHandshakeTimeout time.Duration     `yaml:"tls_handshake_timeout"`
	IdleConnTimeout     time.Duration     `yaml:"idle_conn_timeout"`
	MaxIdleConns        int               `yaml:"max_idle_conns"`
	MaxConnsPerHost     int               `yaml:"max_conns_per_host"`
	DisableKeepAlives   bool              `yaml:"disable_keep_alives"`
	Verify              bool              `yaml:"verify"`
	CACertFile          string            `yaml:"ca_cert_file,omitempty"`
	Proxy               string            `yaml:"proxy,omitempty"`
	MaxRedirects        int               `yaml:"max_redirects"`
	Resolvers           []string          `yaml:"resolvers,omitempty"`
	DNSCacheTTL         time.Duration     `yaml:"dns_cache_ttl"`
	RateLimit           float64           `yaml:"rate_limit"`
	RateBurst           int               `yaml:"rate_burst"`
	Impersonate         string            `yaml:"impersonate,omitempty"`
	UserAgent           string            `yaml:"user_agent,omitempty"`
	Headers             map[string]string `yaml:"headers,omitempty"`
	MaxBodySize         int64             `yaml:"max_body_size"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig enables metrics and tracing export.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		Client: ClientConfig{
			Timeout:             ec.Timeout,
			DialTimeout:         ec.DialTimeout,
			TLSHandshakeTimeout: ec.TLSHandshakeTimeout,
			IdleConnTimeout:     ec.IdleConnTimeout,
			MaxIdleConns:        ec.MaxIdleConns,
			MaxConnsPerHost:     ec.MaxConnsPerHost,
			Verify:              true,
			MaxRedirects:        ec.MaxRedirects,
			DNSCacheTTL:         duration.DNSCache,
			RateBurst:           ec.RateBurst,
			MaxBodySize:         iohelper.DefaultMaxBodySize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: defaults.ToolName,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file %s does not exist", ErrInvalidConfig, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. Resolver addresses are checked
// when the engine is built.
func (c *Config) Validate() error {
	cc := c.Client
	for name, d := range map[string]time.Duration{
		"timeout":               cc.Timeout,
		"dial_timeout":          cc.DialTimeout,
		"tls_handshake_timeout": cc.TLSHandshakeTimeout,
		"idle_conn_timeout":     cc.IdleConnTimeout,
		"dns_cache_ttl":         cc.DNSCacheTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%w: client.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	if cc.MaxIdleConns < 0 || cc.MaxConnsPerHost < 0 || cc.RateBurst < 0 || cc.MaxBodySize < 0 {
		return fmt.Errorf("%w: client limits must not be negative", ErrInvalidConfig)
	}
	if cc.RateLimit < 0 {
		return fmt.Errorf("%w: client.rate_limit must not be negative", ErrInvalidConfig)
	}
	if _, err := engine.ParseProxyURL(cc.Proxy); err != nil {
		return fmt.Errorf("%w: client.proxy: %v", ErrInvalidConfig, err)
	}
	if cc.Impersonate != "" {
		if _, err := engine.ProfileByName(cc.Impersonate); err != nil {
			return fmt.Errorf("%w: client.impersonate: %v", ErrInvalidConfig, err)
		}
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (want text or json)", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Telemetry.ServiceName == "" && (c.Telemetry.OTLPEndpoint != "" || c.Telemetry.MetricsAddr != "") {
		return fmt.Errorf("%w: telemetry.service_name", ErrMissingRequired)
	}
	return nil
}

// EngineConfig converts the client section. Header names and values are
// not validated here; the bridge raises them as header faults.
func (c *Config) EngineConfig() engine.Config {
	cc := c.Client
	return engine.Config{
		Timeout:             cc.Timeout,
		DialTimeout:         cc.DialTimeout,
		TLSHandshakeTimeout: cc.TLSHandshakeTimeout,
		IdleConnTimeout:     cc.IdleConnTimeout,
		MaxIdleConns:        cc.MaxIdleConns,
		MaxConnsPerHost:     cc.MaxConnsPerHost,
		DisableKeepAlives:   cc.DisableKeepAlives,
		InsecureSkipVerify:  !cc.Verify,
		CACertFile:          cc.CACertFile,
		Proxy:               cc.Proxy,
		MaxRedirects:        cc.MaxRedirects,
		Resolvers:           append([]string(nil), cc.Resolvers...),
		DNSCacheTTL:         cc.DNSCacheTTL,
		RateLimit:           cc.RateLimit,
		RateBurst:           cc.RateBurst,
		Impersonate:         cc.Impersonate,
		UserAgent:           cc.UserAgent,
		MaxBodySize:         cc.MaxBodySize,
	}
}

// DefaultHeaders validates the configured headers.
func (c *Config) DefaultHeaders() (http.Header, error) {
	if len(c.Client.Headers) == 0 {
		return nil, nil
	}
	m, err := header.FromMap(c.Client.Headers)
	if err != nil {
		return nil, err
	}
	return m.Header(), nil
}

// SlogLevel returns the configured log level.
func (l LoggingConfig) SlogLevel() slog.Level {
	lvl, _ := parseLevel(l.Level)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, s)
	}
	return lvl, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
