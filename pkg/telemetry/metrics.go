// Package telemetry exports netbridge metrics over HTTP for Prometheus
// scraping and traces to an OpenTelemetry collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/netbridge/pkg/duration"
)

// MetricsPath is where the metrics server serves the registry.
const MetricsPath = "/metrics"

// MetricsServer serves a registry for Prometheus scraping until Close is
// called.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// StartMetricsServer listens on addr and serves reg at MetricsPath. Go
// runtime and process collectors are added to reg.
func StartMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, fmt.Errorf("telemetry: register collector: %w", err)
			}
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	s := &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: duration.MetricsReadHeader,
		},
		listener: ln,
		logger:   logger,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Debug("metrics server listening", slog.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the listening address.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Close shuts the server down. It is idempotent.
func (s *MetricsServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
	defer cancel()
	return s.server.Shutdown(ctx)
}
