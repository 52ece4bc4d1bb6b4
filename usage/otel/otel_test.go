package otel

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rzn-labs/datasourcer/usage"
)

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestEmitSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	cost := 0.008
	results := int64(3)
	event := usage.Event{
		RunID:      "run-test",
		Connector:  "hackernews",
		Tool:       "search_stories",
		Status:     usage.StatusOK,
		DurationMs: 120,
		Units:      usage.Units{Requests: 1, Results: &results},
		CostUSD:    &cost,
		Timestamp:  time.Now().Add(-time.Second),
	}

	sink := NewSink(tp)
	if err := sink.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "rzn.call.hackernews.search_stories" {
		t.Fatalf("span name = %q", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("span status = %v, want ok", span.Status.Code)
	}
	if v, ok := attrValue(span.Attributes, "rzn.run.id"); !ok || v.AsString() != "run-test" {
		t.Fatalf("rzn.run.id attribute = %v, %v", v, ok)
	}
	if v, ok := attrValue(span.Attributes, "rzn.units.results"); !ok || v.AsInt64() != 3 {
		t.Fatalf("rzn.units.results attribute = %v, %v", v, ok)
	}
	if v, ok := attrValue(span.Attributes, "rzn.cost_usd"); !ok || v.AsFloat64() != 0.008 {
		t.Fatalf("rzn.cost_usd attribute = %v, %v", v, ok)
	}
	if !span.EndTime.After(span.StartTime) {
		t.Fatalf("span end %v not after start %v", span.EndTime, span.StartTime)
	}
}

func TestEmitErrorSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	sink := NewSink(tp)
	event := usage.Event{
		Connector: "tavily",
		Tool:      "search",
		Status:    usage.StatusError,
		Timestamp: time.Now(),
	}
	if err := sink.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("span status = %v, want error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Fatalf("expected a recorded error event on the span")
	}
}

func TestEmitAsManagerSink(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	catalog, err := usage.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	manager := usage.NewManager(usage.NewMemoryStore(), catalog)
	manager.AddSink(NewSink(tp))

	err = manager.Record(context.Background(), usage.Event{
		Connector: "wikipedia",
		Tool:      "search",
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if got := len(exporter.GetSpans()); got != 1 {
		t.Fatalf("got %d spans after Record, want 1", got)
	}
}

func TestNewSinkNilProvider(t *testing.T) {
	sink := NewSink(nil)
	if err := sink.Emit(context.Background(), usage.Event{Connector: "rss", Tool: "get_feed"}); err != nil {
		t.Fatalf("Emit with noop provider failed: %v", err)
	}
}
