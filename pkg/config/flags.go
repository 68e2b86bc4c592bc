package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// HeaderFlag collects repeated "Name: value" flags.
type HeaderFlag map[string]string

func (h HeaderFlag) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}

// Set parses one "Name: value" pair. Name and value are validated later,
// when the request is built.
func (h HeaderFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("header %q must be in Name: value form", s)
	}
	h[strings.TrimSpace(name)] = strings.TrimSpace(value)
	return nil
}

// Flags are the command-line overrides. Only flags given on the command
// line are applied.
type Flags struct {
	ConfigFile   string
	Timeout      time.Duration
	Proxy        string
	Impersonate  string
	Insecure     bool
	Headers      HeaderFlag
	LogLevel     string
	LogFormat    string
	MetricsAddr  string
	OTLPEndpoint string

	set map[string]bool
}

// ParseFlags parses args (without the program name) and returns the
// overrides and the remaining positional arguments.
func ParseFlags(name string, args []string, output io.Writer) (*Flags, []string, error) {
	f := &Flags{Headers: HeaderFlag{}, set: map[string]bool{}}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	// === CONFIG ===
	fs.StringVar(&f.ConfigFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.ConfigFile, "c", "", "Config file (alias)")

	// === NETWORK ===
	fs.DurationVar(&f.Timeout, "timeout", 0, "Total request timeout (e.g. 10s)")
	fs.StringVar(&f.Proxy, "proxy", "", "HTTP/SOCKS5 proxy URL")
	fs.StringVar(&f.Proxy, "x", "", "Proxy (alias)")
	fs.StringVar(&f.Impersonate, "impersonate", "", "Browser TLS profile (chrome_120, firefox_120, ...)")
	fs.BoolVar(&f.Insecure, "insecure", false, "Skip TLS verification")
	fs.BoolVar(&f.Insecure, "k", false, "Skip TLS (alias)")
	fs.Var(f.Headers, "header", "Request header 'Name: value' (repeatable)")
	fs.Var(f.Headers, "H", "Header (alias)")

	// === OUTPUT ===
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogFormat, "log-format", "", "Log format: text, json")

	// === TELEMETRY ===
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&f.OTLPEndpoint, "otlp-endpoint", "", "Export traces to this OTLP/gRPC endpoint")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	fs.Visit(func(fl *flag.Flag) { f.set[canonicalFlag(fl.Name)] = true })
	return f, fs.Args(), nil
}

func canonicalFlag(name string) string {
	switch name {
	case "c":
		return "config"
	case "x":
		return "proxy"
	case "k":
		return "insecure"
	case "H":
		return "header"
	}
	return name
}

// Apply copies the overrides that were set onto cfg and revalidates it.
func (f *Flags) Apply(cfg *Config) error {
	if f.set["timeout"] {
		cfg.Client.Timeout = f.Timeout
	}
	if f.set["proxy"] {
		cfg.Client.Proxy = f.Proxy
	}
	if f.set["impersonate"] {
		cfg.Client.Impersonate = f.Impersonate
	}
	if f.set["insecure"] {
		cfg.Client.Verify = !f.Insecure
	}
	if len(f.Headers) > 0 {
		if cfg.Client.Headers == nil {
			cfg.Client.Headers = map[string]string{}
		}
		for k, v := range f.Headers {
			cfg.Client.Headers[k] = v
		}
	}
	if f.set["log-level"] {
		cfg.Logging.Level = f.LogLevel
	}
	if f.set["log-format"] {
		cfg.Logging.Format = f.LogFormat
	}
	if f.set["metrics-addr"] {
		cfg.Telemetry.MetricsAddr = f.MetricsAddr
	}
	if f.set["otlp-endpoint"] {
		cfg.Telemetry.OTLPEndpoint = f.OTLPEndpoint
	}
	return cfg.Validate()
}
