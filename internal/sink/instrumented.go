package sink

import (
	"context"
	"time"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var sinkTracer = otel.Tracer("lightbounty.internal.sink")

// Instrumented wraps a driver with a trace span and latency metrics.
type Instrumented struct {
	next    Sink
	driver  string
	metrics *metrics.BookingMetrics
}

// NewInstrumented decorates next. metrics may be nil.
func NewInstrumented(next Sink, driver string, m *metrics.BookingMetrics) *Instrumented {
	return &Instrumented{next: next, driver: driver, metrics: m}
}

// Insert delegates to the wrapped driver.
func (s *Instrumented) Insert(ctx context.Context, req booking.Request) error {
	ctx, span := sinkTracer.Start(ctx, "sink.insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("sink.driver", s.driver),
		attribute.String("booking.category", string(req.Category)),
		attribute.String("booking.plan", string(req.Plan)),
	)

	start := time.Now()
	err := s.next.Insert(ctx, req)
	s.metrics.ObserveSinkWrite(s.driver, err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
