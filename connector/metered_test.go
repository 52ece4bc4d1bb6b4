package connector

import (
	"context"
	"testing"

	"github.com/rzn-labs/datasourcer/types"
	"github.com/rzn-labs/datasourcer/usage"
)

type fakeConnector struct {
	Base
	calls    []map[string]any
	result   types.CallToolResult
	err      error
	lastTool string
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{Base: NewBase("fake", "fake connector", "fake")}
}

func (f *fakeConnector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name: "echo",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
				},
				"required":             []any{"text"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (f *fakeConnector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	_ = ctx
	f.lastTool = name
	f.calls = append(f.calls, arguments)
	return f.result, f.err
}

func newTestManager(t *testing.T) (*usage.Manager, *usage.MemoryStore) {
	t.Helper()
	catalog, err := usage.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load pricing catalog: %v", err)
	}
	store := usage.NewMemoryStore()
	return usage.NewManager(store, catalog), store
}

func TestMeteredRecordsOneEventPerCall(t *testing.T) {
	fake := newFakeConnector()
	fake.result = types.CallToolResult{
		StructuredContent: map[string]any{"results": []any{map[string]any{"title": "a"}}},
	}
	manager, store := newTestManager(t)
	m := NewMetered(NewHandle(fake), manager)

	ctx := usage.WithRunID(context.Background(), "run-ambient")
	result, err := m.CallTool(ctx, "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	events, _ := store.LoadAll(ctx)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Connector != "fake" || e.Tool != "echo" {
		t.Fatalf("event identity = %s.%s", e.Connector, e.Tool)
	}
	if e.Status != usage.StatusOK {
		t.Fatalf("status = %q", e.Status)
	}
	if e.RunID != "run-ambient" {
		t.Fatalf("run id = %q, want the ambient one", e.RunID)
	}
	if e.Units.Requests != 1 {
		t.Fatalf("requests = %d", e.Units.Requests)
	}

	if result.Meta == nil {
		t.Fatal("expected metering meta on the result")
	}
	if result.Meta["run_id"] != "run-ambient" {
		t.Fatalf("meta run_id = %v", result.Meta["run_id"])
	}
	if _, ok := result.Meta["cost"]; !ok {
		t.Fatal("expected cost meta")
	}
}

func TestMeteredExplicitRunIDWins(t *testing.T) {
	fake := newFakeConnector()
	manager, store := newTestManager(t)
	m := NewMetered(NewHandle(fake), manager)

	ctx := usage.WithRunID(context.Background(), "run-ambient")
	args := map[string]any{
		"text":  "hi",
		"_meta": map[string]any{"run_id": "run-explicit", "key_id": "key-1"},
	}
	if _, err := m.CallTool(ctx, "echo", args); err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	events, _ := store.LoadAll(ctx)
	if events[0].RunID != "run-explicit" {
		t.Fatalf("run id = %q, want run-explicit", events[0].RunID)
	}
	if events[0].KeyID != "key-1" {
		t.Fatalf("key id = %q", events[0].KeyID)
	}

	// The envelope never reaches the connector and the caller's map
	// keeps it.
	if _, ok := fake.calls[0]["_meta"]; ok {
		t.Fatal("inner connector saw the _meta envelope")
	}
	if _, ok := args["_meta"]; !ok {
		t.Fatal("caller's argument map was mutated")
	}
}

func TestMeteredGeneratesRunIDWithoutContext(t *testing.T) {
	fake := newFakeConnector()
	manager, store := newTestManager(t)
	m := NewMetered(NewHandle(fake), manager)

	if _, err := m.CallTool(context.Background(), "echo", map[string]any{"text": "hi"}); err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	events, _ := store.LoadAll(context.Background())
	if events[0].RunID == "" {
		t.Fatal("expected a generated run id")
	}
	if events[0].RequestID == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestMeteredErrorPath(t *testing.T) {
	fake := newFakeConnector()
	fake.err = Upstream("backend exploded", nil)
	manager, store := newTestManager(t)
	m := NewMetered(NewHandle(fake), manager)

	_, err := m.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	if err == nil {
		t.Fatal("expected the connector error to propagate")
	}
	if KindOf(err) != KindUpstream {
		t.Fatalf("error kind = %q", KindOf(err))
	}

	events, _ := store.LoadAll(context.Background())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Status != usage.StatusError {
		t.Fatalf("status = %q, want error", events[0].Status)
	}
	if events[0].Units.Requests != 1 {
		t.Fatal("failed calls still count the request")
	}
}

func TestMeteredSchemaValidation(t *testing.T) {
	fake := newFakeConnector()
	manager, store := newTestManager(t)
	m := NewMetered(NewHandle(fake), manager)

	_, err := m.CallTool(context.Background(), "echo", map[string]any{"bogus": true})
	if err == nil {
		t.Fatal("expected schema validation to reject the arguments")
	}
	if KindOf(err) != KindInvalidParams {
		t.Fatalf("error kind = %q, want invalid_params", KindOf(err))
	}
	if len(fake.calls) != 0 {
		t.Fatal("invalid arguments must not reach the connector")
	}
	if events, _ := store.LoadAll(context.Background()); len(events) != 0 {
		t.Fatalf("rejected calls should not meter, got %d events", len(events))
	}
}
