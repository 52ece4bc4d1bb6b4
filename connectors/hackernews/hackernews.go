// Package hackernews exposes Hacker News through the Algolia search
// API. No credentials are required.
package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

const defaultBaseURL = "http://hn.algolia.com/api/v1"

func init() {
	registry.MustRegister("hackernews", "Hacker News stories and comments via the Algolia API", func() connector.Connector {
		return New()
	})
}

type Connector struct {
	connector.Base
	baseURL string
	client  *http.Client
}

type Option func(*Connector)

// WithBaseURL points the connector at a different API root. Used by
// tests against a local stub.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		if client != nil {
			c.client = client
		}
	}
}

func New(opts ...Option) *Connector {
	c := &Connector{
		Base:    connector.NewBase("hackernews", "Hacker News stories and comments via the Algolia API", "hackernews"),
		baseURL: defaultBaseURL,
		client:  httpx.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	searchSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Full-text search query.",
			},
			"hitsPerPage": map[string]any{
				"type":        "integer",
				"description": "Maximum number of hits to return.",
			},
			"tags": map[string]any{
				"type":        "string",
				"description": "Algolia tag filter, e.g. story or comment.",
			},
		},
		"required":             []any{"query"},
		"additionalProperties": false,
	}
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name:        "search_stories",
			Description: "Search Hacker News by relevance.",
			InputSchema: searchSchema,
		},
		{
			Name:        "search_by_date",
			Description: "Search Hacker News ordered by date, newest first.",
			InputSchema: searchSchema,
		},
		{
			Name:        "get_post",
			Description: "Fetch one item with its full comment tree.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"item_id": map[string]any{
						"type":        "string",
						"description": "Numeric Hacker News item id.",
					},
				},
				"required":             []any{"item_id"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	switch name {
	case "search_stories":
		return c.search(ctx, "/search", arguments)
	case "search_by_date":
		return c.search(ctx, "/search_by_date", arguments)
	case "get_post":
		return c.getPost(ctx, arguments)
	default:
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
}

func (c *Connector) search(ctx context.Context, path string, arguments map[string]any) (types.CallToolResult, error) {
	query, _ := arguments["query"].(string)
	if query == "" {
		return types.CallToolResult{}, connector.InvalidParams("query is required")
	}

	params := url.Values{}
	params.Set("query", query)
	if n, ok := intArg(arguments["hitsPerPage"]); ok {
		params.Set("hitsPerPage", fmt.Sprintf("%d", n))
	}
	if tags, ok := arguments["tags"].(string); ok && tags != "" {
		params.Set("tags", tags)
	} else {
		params.Set("tags", "story")
	}

	body, err := httpx.GetJSON(ctx, c.client, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	hits, _ := body["hits"].([]any)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%d hits for %q", len(hits), query))},
		StructuredContent: body,
	}, nil
}

// getPost fetches one item; the Algolia items endpoint returns the
// comment tree as nested children, which is kept as-is.
func (c *Connector) getPost(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	itemID, _ := arguments["item_id"].(string)
	if itemID == "" {
		return types.CallToolResult{}, connector.InvalidParams("item_id is required")
	}

	body, err := httpx.GetJSON(ctx, c.client, c.baseURL+"/items/"+url.PathEscape(itemID), nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	title, _ := body["title"].(string)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(title)},
		StructuredContent: body,
	}, nil
}

func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

var _ connector.Connector = (*Connector)(nil)
