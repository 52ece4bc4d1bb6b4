package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rzn-labs/datasourcer/usage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return store
}

func TestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cost := 0.012
	results := int64(5)
	base := time.Date(2026, 9, 1, 12, 0, 0, 123456789, time.UTC)
	events := []usage.Event{
		{
			ID:             "evt-1",
			RunID:          "run-1",
			RequestID:      "req-1",
			Connector:      "tavily",
			Tool:           "search",
			Provider:       "tavily",
			KeyID:          "key-1",
			Status:         usage.StatusOK,
			DurationMs:     82,
			Units:          usage.Units{Requests: 1, Results: &results},
			CostUSD:        &cost,
			Currency:       "USD",
			Estimated:      true,
			PricingVersion: "2025-01",
			Timestamp:      base,
		},
		{
			ID:        "evt-2",
			RunID:     "run-1",
			Connector: "hackernews",
			Tool:      "search_stories",
			Status:    usage.StatusError,
			Units:     usage.Units{Requests: 1},
			Timestamp: base.Add(time.Second),
		},
	}
	for _, event := range events {
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d events, want 2", len(loaded))
	}

	first := loaded[0]
	if first.ID != "evt-1" || first.Connector != "tavily" || first.KeyID != "key-1" {
		t.Fatalf("first event = %+v", first)
	}
	if first.CostUSD == nil || *first.CostUSD != 0.012 {
		t.Fatalf("first cost = %v, want 0.012", first.CostUSD)
	}
	if !first.Estimated || first.PricingVersion != "2025-01" {
		t.Fatalf("pricing fields lost: %+v", first)
	}
	if first.Units.Results == nil || *first.Units.Results != 5 {
		t.Fatalf("units lost: %+v", first.Units)
	}
	if !first.Timestamp.Equal(base) {
		t.Fatalf("timestamp = %v, want %v", first.Timestamp, base)
	}

	second := loaded[1]
	if second.Status != usage.StatusError {
		t.Fatalf("second status = %q, want error", second.Status)
	}
	if second.CostUSD != nil {
		t.Fatalf("second cost = %v, want nil", second.CostUSD)
	}
}

func TestLoadAllOrdersByTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	// Recorded out of order on purpose.
	for i, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		event := usage.Event{
			ID:        fmt.Sprintf("evt-%d", i),
			Connector: "rss",
			Tool:      "get_feed",
			Timestamp: base.Add(offset),
		}
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d events, want 3", len(loaded))
	}
	for i := 1; i < len(loaded); i++ {
		if loaded[i].Timestamp.Before(loaded[i-1].Timestamp) {
			t.Fatalf("events out of order: %v before %v", loaded[i].Timestamp, loaded[i-1].Timestamp)
		}
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected an error for a blank path")
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	if err := store.Record(context.Background(), usage.Event{}); err != nil {
		t.Fatalf("nil Record returned %v", err)
	}
	if events, err := store.LoadAll(context.Background()); err != nil || len(events) != 0 {
		t.Fatalf("nil LoadAll returned %v, %v", events, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("nil Close returned %v", err)
	}
}
