// Command netbridge fetches URLs and talks to WebSocket endpoints, reporting
// failures as the exception classes the bridge raises.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/waftester/netbridge/pkg/bridge"
	"github.com/waftester/netbridge/pkg/config"
	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/telemetry"
	"github.com/waftester/netbridge/pkg/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env is what a subcommand runs against.
type env struct {
	client *bridge.Client
	stdin  io.Reader
	out    *ui.Printer
	errOut *ui.Printer
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags, rest, err := config.ParseFlags(defaults.ToolName, args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stderr)
			return defaults.ExitSuccess
		}
		return defaults.ExitUserError
	}
	if len(rest) == 0 {
		usage(stderr)
		return defaults.ExitUserError
	}

	out, errOut := ui.NewPrinter(stdout), ui.NewPrinter(stderr)
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "classes":
		printClasses(out)
		return defaults.ExitSuccess
	case "version":
		fmt.Fprintf(stdout, "%s %s\n", defaults.ToolName, defaults.Version)
		return defaults.ExitSuccess
	case "fetch", "ws":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return defaults.ExitUserError
	}

	cfg, err := config.Load(flags.ConfigFile)
	if err == nil {
		err = flags.Apply(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return defaults.ExitUserError
	}

	logger := newLogger(cfg.Logging, stderr)
	registry := prometheus.NewRegistry()

	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		metrics, err := telemetry.StartMetricsServer(addr, registry, logger)
		if err != nil {
			fmt.Fprintf(stderr, "metrics: %v\n", err)
			return defaults.ExitUserError
		}
		defer metrics.Close()
	}

	opts := []bridge.Option{bridge.WithLogger(logger), bridge.WithRegistry(registry)}
	if endpoint := cfg.Telemetry.OTLPEndpoint; endpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingOptions{
			Endpoint:    endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
			Insecure:    cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			fmt.Fprintf(stderr, "tracing: %v\n", err)
			return defaults.ExitUserError
		}
		defer shutdownTracing(tp, logger)
		opts = append(opts, bridge.WithTracerProvider(tp))
	}

	client, err := bridge.NewClient(cfg, opts...)
	if err != nil {
		return report(errOut, err)
	}
	defer client.Close()

	e := &env{client: client, stdin: stdin, out: out, errOut: errOut, logger: logger}
	switch cmd {
	case "fetch":
		return e.fetch(ctx, cmdArgs)
	default:
		return e.websocket(ctx, cmdArgs)
	}
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func shutdownTracing(tp *sdktrace.TracerProvider, logger *slog.Logger) {
	if err := telemetry.Shutdown(tp); err != nil {
		logger.Warn("trace export incomplete", slog.String("error", err.Error()))
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %[1]s [flags] <command> [args]

Commands:
  fetch [-X method] [-d data] [-i] [-fail] <url>   Send an HTTP request and print the body
  ws <url> [message...]                            Send messages over a WebSocket and print replies
  classes                                          List the exception classes
  version                                          Print the version

Flags:
  -config, -c      YAML configuration file
  -timeout         Total request timeout (e.g. 10s)
  -proxy, -x       HTTP/SOCKS5 proxy URL
  -impersonate     Browser TLS profile
  -insecure, -k    Skip TLS verification
  -header, -H      Request header 'Name: value' (repeatable)
  -log-level       debug, info, warn, error
  -log-format      text, json
  -metrics-addr    Serve Prometheus metrics on this address
  -otlp-endpoint   Export traces to this OTLP/gRPC endpoint
`, defaults.ToolName)
}
