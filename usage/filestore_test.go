package usage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.ndjson")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, tool := range []string{"search", "get_post"} {
		event := Event{RunID: "run-1", RequestID: NewRequestID(), Connector: "hackernews", Tool: tool, Status: StatusOK, Units: Units{Requests: 1}}
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	events, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID == "" || events[0].Timestamp.IsZero() {
		t.Fatal("recorded events must carry an id and timestamp")
	}
	if events[1].Tool != "get_post" {
		t.Fatalf("events out of order: %q", events[1].Tool)
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.ndjson")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Record(ctx, Event{RunID: "run-1", Connector: "web", Tool: "fetch", Status: StatusOK}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Simulate a torn write at the tail.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to reopen log: %v", err)
	}
	if _, err := f.WriteString(`{"run_id":"run-2","connector":`); err != nil {
		t.Fatalf("failed to write torn line: %v", err)
	}
	f.Close()

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	events, err := reopened.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("corrupt line should be skipped, got %d events", len(events))
	}
	if events[0].RunID != "run-1" {
		t.Fatalf("surviving event = %+v", events[0])
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.ndjson")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer store.Close()

	events, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll on empty log failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}
