package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/types"
)

func tavilyStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		if key, _ := payload["api_key"].(string); key != "tvly-test" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid api key"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"query": payload["query"],
			"results": []any{
				map[string]any{"title": "Go", "url": "https://go.dev"},
				map[string]any{"title": "Go blog", "url": "https://go.dev/blog"},
			},
		})
	}))
}

func TestSearch(t *testing.T) {
	server := tavilyStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	c.SetAuthDetails(types.AuthDetails{"api_key": "tvly-test"})

	result, err := c.CallTool(context.Background(), "search", map[string]any{"query": "golang"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	sc, _ := result.StructuredContent.(map[string]any)
	results, _ := sc["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearchWithoutKey(t *testing.T) {
	server := tavilyStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	_, err := c.CallTool(context.Background(), "search", map[string]any{"query": "golang"})
	if connector.KindOf(err) != connector.KindAuthFailed {
		t.Fatalf("expected auth_failed, got %v", err)
	}
}

func TestSearchBadKey(t *testing.T) {
	server := tavilyStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	c.SetAuthDetails(types.AuthDetails{"api_key": "wrong"})
	_, err := c.CallTool(context.Background(), "search", map[string]any{"query": "golang"})
	if connector.KindOf(err) != connector.KindAuthFailed {
		t.Fatalf("expected auth_failed from upstream 401, got %v", err)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	c := New()
	c.SetAuthDetails(types.AuthDetails{"api_key": "tvly-test"})
	_, err := c.CallTool(context.Background(), "search", map[string]any{})
	if connector.KindOf(err) != connector.KindInvalidParams {
		t.Fatalf("expected invalid_params, got %v", err)
	}
}

func TestTestAuth(t *testing.T) {
	server := tavilyStub(t)
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	c.SetAuthDetails(types.AuthDetails{"api_key": "tvly-test"})
	if err := c.TestAuth(context.Background()); err != nil {
		t.Fatalf("TestAuth failed: %v", err)
	}
}
