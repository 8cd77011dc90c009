package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "github.com/attendance-hq/apiserver"
	MeterName  = "github.com/attendance-hq/apiserver"

	AttrAction     = "attendance.action"
	AttrEmployeeID = "attendance.employee_id"
	AttrReason     = "attendance.rejection_reason"
)

// Telemetry holds the tracer and metric instruments for attendance
// transitions. A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
}

// New creates Telemetry from the given providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	meter := mp.Meter(MeterName)
	t := &Telemetry{tracer: tp.Tracer(TracerName)}

	var err error
	t.transitions, err = meter.Int64Counter(
		"attendance.transitions",
		metric.WithDescription("Attendance events recorded"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		t.transitions, _ = meter.Int64Counter("attendance.transitions")
	}

	t.rejections, err = meter.Int64Counter(
		"attendance.rejections",
		metric.WithDescription("Attendance transitions rejected by validation rules"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		t.rejections, _ = meter.Int64Counter("attendance.rejections")
	}
	return t
}

// Global creates Telemetry from the process-wide OpenTelemetry providers.
func Global() *Telemetry {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// StartTransition starts a span for a check-in or check-out attempt.
func (t *Telemetry) StartTransition(ctx context.Context, action string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "attendance.transition", trace.WithAttributes(
		attribute.String(AttrAction, action),
	))
}

// RecordTransition counts a recorded attendance event.
func (t *Telemetry) RecordTransition(ctx context.Context, action, employeeID string) {
	if t == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String(AttrEmployeeID, employeeID))
	t.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAction, action)))
}

// RecordRejection counts a transition refused by a rule and marks the span.
func (t *Telemetry) RecordRejection(ctx context.Context, action, reason string) {
	if t == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.SetStatus(codes.Error, reason)
	t.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAction, action),
		attribute.String(AttrReason, reason),
	))
}
