package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *Telemetry
	ctx, span := tel.StartTransition(context.Background(), "CHECK_IN")
	assert.NotNil(t, span)
	tel.RecordTransition(ctx, "CHECK_IN", "emp")
	tel.RecordRejection(ctx, "CHECK_IN", "already checked in today")
}

func TestTelemetryWithNoopProviders(t *testing.T) {
	tel := New(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	ctx, span := tel.StartTransition(context.Background(), "CHECK_OUT")
	defer span.End()

	assert.NotPanics(t, func() {
		tel.RecordTransition(ctx, "CHECK_OUT", "emp")
		tel.RecordRejection(ctx, "CHECK_OUT", "no check-in found for today")
	})
}
