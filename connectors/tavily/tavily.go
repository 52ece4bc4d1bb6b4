// Package tavily wraps the Tavily web search API. An api_key is
// required; TAVILY_API_KEY works as an environment fallback.
package tavily

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

const defaultBaseURL = "https://api.tavily.com"

func init() {
	registry.MustRegister("tavily", "Tavily web search", func() connector.Connector {
		return New()
	})
}

type Connector struct {
	connector.Base
	baseURL string
	client  *http.Client
}

type Option func(*Connector)

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
		Base:    connector.NewBase("tavily", "Tavily web search", "tavily"),
		baseURL: defaultBaseURL,
		client:  httpx.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connector) ConfigSchema() types.ConfigSchema {
	return types.ConfigSchema{
		Fields: []types.Field{
			{
				Name:     "api_key",
				Label:    "API key",
				Type:     types.FieldSecret,
				Required: true,
			},
		},
		RequiresAuth: true,
	}
}

func (c *Connector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name:        "search",
			Description: "Search the web.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":       map[string]any{"type": "string"},
					"max_results": map[string]any{"type": "integer"},
					"search_depth": map[string]any{
						"type": "string",
						"enum": []any{"basic", "advanced"},
					},
				},
				"required":             []any{"query"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	if name != "search" {
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
	query, _ := arguments["query"].(string)
	if query == "" {
		return types.CallToolResult{}, connector.InvalidParams("query is required")
	}
	apiKey := c.AuthValue("api_key")
	if apiKey == "" {
		return types.CallToolResult{}, connector.AuthFailed("tavily api_key is not configured")
	}

	payload := map[string]any{
		"api_key": apiKey,
		"query":   query,
	}
	if n, ok := arguments["max_results"].(float64); ok && n > 0 {
		payload["max_results"] = int(n)
	}
	if depth, ok := arguments["search_depth"].(string); ok && depth != "" {
		payload["search_depth"] = depth
	}

	body, err := httpx.PostJSON(ctx, c.client, c.baseURL+"/search", payload, nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	results, _ := body["results"].([]any)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%d results for %q", len(results), query))},
		StructuredContent: body,
	}, nil
}

// TestAuth runs the cheapest possible search to prove the key works.
func (c *Connector) TestAuth(ctx context.Context) error {
	if c.AuthValue("api_key") == "" {
		return connector.AuthFailed("tavily api_key is not configured")
	}
	_, err := c.CallTool(ctx, "search", map[string]any{"query": "ping", "max_results": float64(1)})
	return err
}

var _ connector.Connector = (*Connector)(nil)
