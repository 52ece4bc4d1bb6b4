package usage

import (
	"context"
	"testing"
	"time"
)

func testCatalog() *Catalog {
	return &Catalog{version: "test", entries: []Entry{
		{Pattern: "tavily.*", Category: CategoryMetered, Model: PricingModel{
			Kind: ModelPerRequest, UnitCostUSD: 0.008,
		}},
		{Pattern: "openai-*.*", Category: CategoryMetered, Model: PricingModel{
			Kind: ModelProviderReported,
		}},
		{Pattern: "hackernews.*", Category: CategoryAuthOnly, Model: PricingModel{
			Kind: ModelPerRequest, UnitCostUSD: 0,
		}},
	}}
}

func TestEstimateEventMetered(t *testing.T) {
	m := NewManager(NewMemoryStore(), testCatalog())

	event, meta := m.EstimateEvent(CallInfo{
		Connector: "tavily",
		Tool:      "search",
		Provider:  "tavily",
		RunID:     "run-abc",
		RequestID: "req-abc",
		Status:    StatusOK,
		Duration:  120 * time.Millisecond,
		Structured: map[string]any{
			"results": []any{map[string]any{"title": "a"}, map[string]any{"title": "b"}},
		},
	})

	if event.ID == "" {
		t.Fatal("expected a generated event id")
	}
	if event.Units.Requests != 1 {
		t.Fatalf("requests = %d, want 1", event.Units.Requests)
	}
	if event.Units.Results == nil || *event.Units.Results != 2 {
		t.Fatalf("results = %v, want 2", event.Units.Results)
	}
	if event.CostUSD == nil || *event.CostUSD != 0.008 {
		t.Fatalf("cost = %v, want 0.008", event.CostUSD)
	}
	if !event.Estimated {
		t.Fatal("per_request pricing should be estimated")
	}
	if meta["run_id"] != "run-abc" {
		t.Fatalf("meta run_id = %v", meta["run_id"])
	}
	if meta["category"] != "metered" {
		t.Fatalf("meta category = %v", meta["category"])
	}
	cost, ok := meta["cost"].(map[string]any)
	if !ok {
		t.Fatalf("meta cost = %T", meta["cost"])
	}
	if cost["amount"] != 0.008 {
		t.Fatalf("meta cost amount = %v", cost["amount"])
	}
	if cost["pricing_version"] != "test" {
		t.Fatalf("meta pricing_version = %v", cost["pricing_version"])
	}
}

func TestEstimateEventAuthOnly(t *testing.T) {
	m := NewManager(NewMemoryStore(), testCatalog())

	event, meta := m.EstimateEvent(CallInfo{
		Connector: "hackernews",
		Tool:      "search_stories",
		Status:    StatusOK,
		Structured: map[string]any{
			"hits": []any{map[string]any{}, map[string]any{}, map[string]any{}},
		},
	})

	if meta["category"] != "auth_only" {
		t.Fatalf("meta category = %v", meta["category"])
	}
	if event.CostUSD == nil || *event.CostUSD != 0 {
		t.Fatalf("auth_only cost = %v, want 0", event.CostUSD)
	}
	if event.Units.Results == nil || *event.Units.Results != 3 {
		t.Fatalf("results = %v, want 3", event.Units.Results)
	}
}

func TestEstimateEventProviderReported(t *testing.T) {
	m := NewManager(NewMemoryStore(), testCatalog())

	event, _ := m.EstimateEvent(CallInfo{
		Connector: "openai-search",
		Tool:      "search",
		Status:    StatusOK,
		Structured: map[string]any{
			"results": []any{},
			"cost":    0.0123,
		},
	})

	if event.CostUSD == nil || *event.CostUSD != 0.0123 {
		t.Fatalf("reported cost = %v, want 0.0123", event.CostUSD)
	}
	if event.Estimated {
		t.Fatal("provider reported cost must not be flagged estimated")
	}
}

func TestEstimateEventTokenUnits(t *testing.T) {
	m := NewManager(NewMemoryStore(), testCatalog())

	event, _ := m.EstimateEvent(CallInfo{
		Connector: "openai-search",
		Tool:      "search",
		Status:    StatusOK,
		Structured: map[string]any{
			"results": []any{},
			"usage": map[string]any{
				"input_tokens":  float64(1200),
				"output_tokens": float64(340),
			},
		},
	})

	if event.Units.InputTokens == nil || *event.Units.InputTokens != 1200 {
		t.Fatalf("input tokens = %v", event.Units.InputTokens)
	}
	if event.Units.OutputTokens == nil || *event.Units.OutputTokens != 340 {
		t.Fatalf("output tokens = %v", event.Units.OutputTokens)
	}
}

func TestEstimateEventErrorPath(t *testing.T) {
	m := NewManager(NewMemoryStore(), testCatalog())

	event, _ := m.EstimateEvent(CallInfo{
		Connector: "tavily",
		Tool:      "search",
		Status:    StatusError,
		Duration:  40 * time.Millisecond,
	})

	if event.Status != StatusError {
		t.Fatalf("status = %q", event.Status)
	}
	if event.Units.Requests != 1 {
		t.Fatalf("error events still count the request, got %d", event.Units.Requests)
	}
	if event.Units.Results != nil {
		t.Fatal("error events should carry no result units")
	}
}

func TestRecordFansOutToSinks(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, testCatalog())

	var seen []Event
	m.AddSink(SinkFunc(func(ctx context.Context, event Event) error {
		seen = append(seen, event)
		return nil
	}))

	event, _ := m.EstimateEvent(CallInfo{Connector: "tavily", Tool: "search", Status: StatusOK})
	if err := m.Record(context.Background(), event); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stored, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(stored) != 1 || len(seen) != 1 {
		t.Fatalf("stored %d, sink saw %d; want 1 and 1", len(stored), len(seen))
	}
	if stored[0].ID != seen[0].ID {
		t.Fatal("sink should see the stored event")
	}
}

func TestSummarizeRuns(t *testing.T) {
	cost := 0.01
	events := []Event{
		{RunID: "run-1", Status: StatusOK, Units: Units{Requests: 1}, CostUSD: &cost, Timestamp: time.Unix(100, 0)},
		{RunID: "run-1", Status: StatusError, Units: Units{Requests: 1}, Timestamp: time.Unix(101, 0)},
		{RunID: "run-2", Status: StatusOK, Units: Units{Requests: 1}, Timestamp: time.Unix(50, 0)},
	}

	runs := SummarizeRuns(events)
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Fatalf("runs should be ordered by start time, first = %q", runs[0].RunID)
	}
	if runs[1].Events != 2 || runs[1].Errors != 1 || runs[1].CostUSD != 0.01 {
		t.Fatalf("run-1 summary = %+v", runs[1])
	}
}
