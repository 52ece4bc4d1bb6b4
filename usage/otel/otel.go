// Package otel bridges the usage sink to OpenTelemetry tracing.
//
// It converts usage events into OTel spans so metered tool calls are
// visible in any OpenTelemetry-compatible backend.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rzn-labs/datasourcer/usage"
)

const instrumentationName = "github.com/rzn-labs/datasourcer/usage"

// Sink implements usage.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts a usage event into an OTel span.
func (s *Sink) Emit(_ context.Context, event usage.Event) error {
	event.Normalize()

	startTime := event.Timestamp
	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("rzn.connector", event.Connector),
		attribute.String("rzn.tool", event.Tool),
		attribute.String("rzn.status", string(event.Status)),
	}
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("rzn.run.id", event.RunID))
	}
	if event.RequestID != "" {
		attrs = append(attrs, attribute.String("rzn.request.id", event.RequestID))
	}
	if event.Provider != "" {
		attrs = append(attrs, attribute.String("rzn.provider", event.Provider))
	}
	if event.Model != "" {
		attrs = append(attrs, attribute.String("rzn.model", event.Model))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("rzn.duration_ms", event.DurationMs))
	}
	if event.Units.Requests > 0 {
		attrs = append(attrs, attribute.Int64("rzn.units.requests", event.Units.Requests))
	}
	if event.Units.Results != nil {
		attrs = append(attrs, attribute.Int64("rzn.units.results", *event.Units.Results))
	}
	if event.Units.InputTokens != nil {
		attrs = append(attrs, attribute.Int64("rzn.units.input_tokens", *event.Units.InputTokens))
	}
	if event.Units.OutputTokens != nil {
		attrs = append(attrs, attribute.Int64("rzn.units.output_tokens", *event.Units.OutputTokens))
	}
	if event.CostUSD != nil {
		attrs = append(attrs, attribute.Float64("rzn.cost_usd", *event.CostUSD))
	}
	span.SetAttributes(attrs...)

	if event.Status == usage.StatusError {
		span.SetStatus(codes.Error, "tool call failed")
		span.RecordError(fmt.Errorf("%s.%s failed", event.Connector, event.Tool))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	endTime := startTime
	if event.DurationMs > 0 {
		endTime = startTime.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event usage.Event) string {
	if event.Connector != "" && event.Tool != "" {
		return "rzn.call." + event.Connector + "." + event.Tool
	}
	return "rzn.call"
}

var _ usage.Sink = (*Sink)(nil)
