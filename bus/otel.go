package bus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an
// immediate (point-in-time) OpenTelemetry span, adapted from the
// teacher's graph/emit.OTelEmitter.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using tracer, e.g.
// otel.Tracer("kernel").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span named after the event type,
// carrying the run/agent identity as attributes and the raw payload
// as a string attribute. AgentFailed and SystemIntervention events are
// marked as span errors so trace backends surface them distinctly.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), string(event.EventType))
	defer span.End()

	span.SetAttributes(
		attribute.String("kernel.event_id", event.EventID),
		attribute.String("kernel.run_id", event.RunID),
		attribute.String("kernel.agent_id", event.AgentID),
	)
	if len(event.Payload) > 0 {
		span.SetAttributes(attribute.String("kernel.payload", string(event.Payload)))
	}
	if event.EventType == AgentFailed || event.EventType == SystemIntervention {
		span.SetStatus(codes.Error, string(event.EventType))
	}
}

// Flush force-flushes the global tracer provider if it supports it
// (the SDK provider does; the no-op provider does not).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
