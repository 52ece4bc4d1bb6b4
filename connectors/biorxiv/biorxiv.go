// Package biorxiv fetches preprint metadata from the bioRxiv and
// medRxiv details API. The server argument selects which archive.
package biorxiv

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

const defaultBaseURL = "https://api.biorxiv.org"

func init() {
	registry.MustRegister("biorxiv", "bioRxiv and medRxiv preprint metadata", func() connector.Connector {
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
		Base:    connector.NewBase("biorxiv", "bioRxiv and medRxiv preprint metadata", "biorxiv"),
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
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name:        "get_preprint_by_doi",
			Description: "Fetch preprint metadata by DOI.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doi": map[string]any{"type": "string"},
					"server": map[string]any{
						"type": "string",
						"enum": []any{"biorxiv", "medrxiv"},
					},
				},
				"required":             []any{"doi"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "recent_preprints",
			Description: "List the most recently posted preprints.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"server": map[string]any{
						"type": "string",
						"enum": []any{"biorxiv", "medrxiv"},
					},
					"limit": map[string]any{"type": "integer"},
				},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	switch name {
	case "get_preprint_by_doi":
		return c.getPreprint(ctx, arguments)
	case "recent_preprints":
		return c.recent(ctx, arguments)
	default:
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
}

func (c *Connector) getPreprint(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	doi, _ := arguments["doi"].(string)
	if doi == "" {
		return types.CallToolResult{}, connector.InvalidParams("doi is required")
	}
	server := serverArg(arguments)

	body, err := httpx.GetJSON(ctx, c.client, fmt.Sprintf("%s/details/%s/%s", c.baseURL, server, doi), nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	collection, _ := body["collection"].([]any)
	if len(collection) == 0 {
		return types.CallToolResult{}, connector.NotFound("no %s preprint with DOI %s", server, doi)
	}

	title := ""
	if first, ok := collection[0].(map[string]any); ok {
		title, _ = first["title"].(string)
	}
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(title)},
		StructuredContent: body,
	}, nil
}

func (c *Connector) recent(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	server := serverArg(arguments)
	limit := 10
	if n, ok := arguments["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	body, err := httpx.GetJSON(ctx, c.client, fmt.Sprintf("%s/details/%s/0/%d", c.baseURL, server, limit), nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	collection, _ := body["collection"].([]any)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%d recent %s preprints", len(collection), server))},
		StructuredContent: body,
	}, nil
}

func serverArg(arguments map[string]any) string {
	if server, ok := arguments["server"].(string); ok && server == "medrxiv" {
		return "medrxiv"
	}
	return "biorxiv"
}

var _ connector.Connector = (*Connector)(nil)
