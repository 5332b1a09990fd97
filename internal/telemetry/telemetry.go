// Package telemetry records OpenTelemetry spans and metrics for tool calls.
//
// Instruments are created from whatever providers the caller configures. When
// none are configured the global providers are used, which are no-ops unless
// the embedding program installs an SDK.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope used for tracers and meters.
const ScopeName = "github.com/wagiedev/counter-mcp-go"

// Attribute keys.
const (
	AttrTool      = "mcp.tool.name"
	AttrSessionID = "mcp.session.id"
	AttrOutcome   = "mcp.tool.outcome"
)

// Outcome values recorded under AttrOutcome.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Instruments holds the tracer and metric instruments for tool dispatch.
type Instruments struct {
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	sessions metric.Int64UpDownCounter
}

// New creates Instruments from the given providers.
// Nil providers fall back to the global ones.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(ScopeName)

	calls, err := meter.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Number of tool calls dispatched"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("mcp.tool.duration",
		metric.WithDescription("Duration of tool calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := meter.Int64UpDownCounter("mcp.sessions.active",
		metric.WithDescription("Number of open sessions"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		tracer:   tp.Tracer(ScopeName),
		calls:    calls,
		duration: duration,
		sessions: sessions,
	}, nil
}

// StartCall starts a span for a call to the named tool.
// The returned function must be called exactly once with the call outcome.
func (i *Instruments) StartCall(ctx context.Context, toolName string) (context.Context, func(outcome string, err error)) {
	start := time.Now()

	ctx, span := i.tracer.Start(ctx, "tools/call "+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(AttrTool, toolName)),
	)

	return ctx, func(outcome string, err error) {
		attrs := metric.WithAttributes(
			attribute.String(AttrTool, toolName),
			attribute.String(AttrOutcome, outcome),
		)

		i.calls.Add(ctx, 1, attrs)
		i.duration.Record(ctx, time.Since(start).Seconds(), attrs)

		span.SetAttributes(attribute.String(AttrOutcome, outcome))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End()
	}
}

// SessionOpened records a new open session.
func (i *Instruments) SessionOpened(ctx context.Context, sessionID string) {
	i.sessions.Add(ctx, 1)
	trace.SpanFromContext(ctx).AddEvent("session.opened",
		trace.WithAttributes(attribute.String(AttrSessionID, sessionID)),
	)
}

// SessionClosed records a closed session.
func (i *Instruments) SessionClosed(ctx context.Context, sessionID string) {
	i.sessions.Add(ctx, -1)
	trace.SpanFromContext(ctx).AddEvent("session.closed",
		trace.WithAttributes(attribute.String(AttrSessionID, sessionID)),
	)
}
