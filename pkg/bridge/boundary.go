// Package bridge is the host-facing surface of netbridge. Every error that
// leaves it is an exceptions.Exception, produced in exactly one place:
// Boundary.Raise.
package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waftester/netbridge/pkg/engine"
	"github.com/waftester/netbridge/pkg/exceptions"
	"github.com/waftester/netbridge/pkg/fault"
)

// MetricExceptions is the name of the raised-exception counter.
const MetricExceptions = "netbridge_exceptions_total"

// Boundary converts errors into exceptions and reports each one to the
// log, the metrics registry and the active span.
type Boundary struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	raised   *prometheus.CounterVec
}

// NewBoundary creates a boundary. A nil logger uses slog.Default(); a nil
// registry gets a private one (see Registry).
func NewBoundary(logger *slog.Logger, registry *prometheus.Registry) (*Boundary, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	raised := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricExceptions,
			Help: "Total number of exceptions raised at the host boundary",
		},
		[]string{"op", "class"},
	)
	if err := registry.Register(raised); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		raised = existing
	}
	return &Boundary{
		logger:   orDefault(logger),
		registry: registry,
		raised:   raised,
	}, nil
}

// Registry returns the registry holding the boundary's metrics.
func (b *Boundary) Registry() *prometheus.Registry { return b.registry }

// Raise returns the exception for err, or nil for nil. Exceptions pass
// through unchanged. op names the host operation for logs and metrics.
func (b *Boundary) Raise(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	exc := project(err)
	b.report(ctx, op, exc)
	return exc
}

func project(err error) exceptions.Exception {
	if exc, ok := err.(exceptions.Exception); ok {
		return exc
	}
	if errors.Is(err, engine.ErrResolver) {
		return exceptions.Wrap(exceptions.ClassDNSResolver, "DNS resolver error: "+fault.Debug(err), err)
	}
	return exceptions.Project(fault.From(err))
}

func (b *Boundary) report(ctx context.Context, op string, exc exceptions.Exception) {
	class := exc.Class()
	id := uuid.NewString()

	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("class", class.String()),
		slog.String("fault_id", id),
	}
	var f *fault.Fault
	if errors.As(exc, &f) {
		attrs = append(attrs, slog.String("fault", f.Kind().String()))
	}
	attrs = append(attrs, slog.String("error", exc.Error()))

	b.raised.WithLabelValues(op, class.String()).Inc()

	if stopping(class) {
		b.logger.LogAttrs(ctx, slog.LevelDebug, "iteration finished", attrs...)
		return
	}

	level := slog.LevelWarn
	if class.Network() {
		level = slog.LevelError
	}
	b.logger.LogAttrs(ctx, level, "exception raised", attrs...)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(exc, trace.WithAttributes(
			attribute.String("exception.class", class.String()),
			attribute.String("netbridge.fault_id", id),
		))
		span.SetStatus(codes.Error, class.String())
	}
}

// stopping reports whether class signals normal end of iteration.
func stopping(c exceptions.Class) bool {
	return c == exceptions.ClassStopIteration || c == exceptions.ClassStopAsyncIteration
}

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
