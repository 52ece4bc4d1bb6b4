package hackernews

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/usage"
)

func algoliaStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search", "/search_by_date":
			if r.URL.Query().Get("query") == "" {
				http.Error(w, "missing query", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"hits": []any{
					map[string]any{"title": "First story", "url": "https://example.com/1", "points": 120.0},
					map[string]any{"title": "Second story", "url": "https://example.com/2", "points": 80.0},
					map[string]any{"title": "Third story", "url": "https://example.com/3", "points": 15.0},
				},
				"nbHits": 3,
			})
		case "/items/38865518":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    38865518,
				"title": "An item",
				"children": []any{
					map[string]any{"id": 1, "text": "a comment"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSearchStories(t *testing.T) {
	server := algoliaStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	result, err := c.CallTool(context.Background(), "search_stories", map[string]any{
		"query":       "golang",
		"hitsPerPage": float64(3),
	})
	if err != nil {
		t.Fatalf("search_stories failed: %v", err)
	}

	structured, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structured content = %T", result.StructuredContent)
	}
	hits, _ := structured["hits"].([]any)
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		t.Fatal("expected readable content")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	c := New(WithBaseURL("http://unused.invalid"))
	_, err := c.CallTool(context.Background(), "search_stories", map[string]any{})
	if connector.KindOf(err) != connector.KindInvalidParams {
		t.Fatalf("error kind = %q, want invalid_params", connector.KindOf(err))
	}
}

func TestGetPost(t *testing.T) {
	server := algoliaStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	result, err := c.CallTool(context.Background(), "get_post", map[string]any{"item_id": "38865518"})
	if err != nil {
		t.Fatalf("get_post failed: %v", err)
	}
	structured := result.StructuredContent.(map[string]any)
	if structured["title"] != "An item" {
		t.Fatalf("title = %v", structured["title"])
	}
}

func TestGetPostNotFound(t *testing.T) {
	server := algoliaStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	_, err := c.CallTool(context.Background(), "get_post", map[string]any{"item_id": "999"})
	if connector.KindOf(err) != connector.KindNotFound {
		t.Fatalf("error kind = %q, want not_found", connector.KindOf(err))
	}
}

func TestUnknownTool(t *testing.T) {
	c := New()
	_, err := c.CallTool(context.Background(), "nope", nil)
	if connector.KindOf(err) != connector.KindToolNotFound {
		t.Fatalf("error kind = %q, want tool_not_found", connector.KindOf(err))
	}
}

// A metered search against the free API records one zero-cost event.
func TestMeteredSearchIsFree(t *testing.T) {
	server := algoliaStub(t)
	defer server.Close()

	catalog, err := usage.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	store := usage.NewMemoryStore()
	manager := usage.NewManager(store, catalog)

	m := connector.NewMetered(connector.NewHandle(New(WithBaseURL(server.URL))), manager)
	result, err := m.CallTool(context.Background(), "search_stories", map[string]any{
		"query":       "test",
		"hitsPerPage": float64(3),
	})
	if err != nil {
		t.Fatalf("metered call failed: %v", err)
	}

	events, _ := store.LoadAll(context.Background())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Units.Requests != 1 {
		t.Fatalf("requests = %d", e.Units.Requests)
	}
	if e.Units.Results == nil || *e.Units.Results != 3 {
		t.Fatalf("results = %v, want 3", e.Units.Results)
	}
	if e.CostUSD == nil || *e.CostUSD != 0 {
		t.Fatalf("cost = %v, want 0", e.CostUSD)
	}

	if result.Meta["category"] != "auth_only" {
		t.Fatalf("meta category = %v", result.Meta["category"])
	}
}
