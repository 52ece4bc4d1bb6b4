// Package wikipedia reads article summaries and search results from
// the Wikimedia REST APIs. No credentials are required; a "language"
// auth field selects the wiki edition.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

func init() {
	registry.MustRegister("wikipedia", "Wikipedia search and article summaries", func() connector.Connector {
		return New()
	})
}

type Connector struct {
	connector.Base
	client *http.Client

	// baseFormat turns (language, path) into a URL. Tests override it
	// to point at a stub server.
	baseFormat string
}

type Option func(*Connector)

// WithBaseFormat overrides the endpoint template. The template
// receives the language subdomain as its only verb.
func WithBaseFormat(format string) Option {
	return func(c *Connector) {
		if format != "" {
			c.baseFormat = format
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
		Base:       connector.NewBase("wikipedia", "Wikipedia search and article summaries", "wikipedia"),
		client:     httpx.NewClient(),
		baseFormat: "https://%s.wikipedia.org",
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
				Name:        "language",
				Label:       "Language",
				Type:        types.FieldText,
				Required:    false,
				Description: "Wiki edition subdomain, defaults to en.",
			},
		},
	}
}

func (c *Connector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name:        "search",
			Description: "Search article titles and contents.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer"},
					"language": map[string]any{
						"type":        "string",
						"description": "Wiki edition, e.g. en or de.",
					},
				},
				"required":             []any{"query"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "get_page",
			Description: "Fetch one article summary by title.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"language": map[string]any{"type": "string"},
				},
				"required":             []any{"title"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	switch name {
	case "search":
		return c.search(ctx, arguments)
	case "get_page":
		return c.getPage(ctx, arguments)
	default:
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
}

func (c *Connector) search(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	query, _ := arguments["query"].(string)
	if query == "" {
		return types.CallToolResult{}, connector.InvalidParams("query is required")
	}
	limit := 10
	if n, ok := arguments["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	endpoint := fmt.Sprintf("%s/w/rest.php/v1/search/page?q=%s&limit=%d",
		c.base(c.language(arguments)), url.QueryEscape(query), limit)
	body, err := httpx.GetJSON(ctx, c.client, endpoint, nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	pages, _ := body["pages"].([]any)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%d pages for %q", len(pages), query))},
		StructuredContent: body,
	}, nil
}

func (c *Connector) getPage(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	title, _ := arguments["title"].(string)
	if title == "" {
		return types.CallToolResult{}, connector.InvalidParams("title is required")
	}

	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		c.base(c.language(arguments)), url.PathEscape(title))
	body, err := httpx.GetJSON(ctx, c.client, endpoint, nil)
	if err != nil {
		return types.CallToolResult{}, err
	}

	extract, _ := body["extract"].(string)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(extract)},
		StructuredContent: body,
	}, nil
}

func (c *Connector) language(arguments map[string]any) string {
	if lang, ok := arguments["language"].(string); ok && lang != "" {
		return lang
	}
	if lang := c.AuthValue("language"); lang != "" {
		return lang
	}
	return "en"
}

func (c *Connector) base(language string) string {
	if !strings.Contains(c.baseFormat, "%s") {
		return c.baseFormat
	}
	return fmt.Sprintf(c.baseFormat, language)
}

var _ connector.Connector = (*Connector)(nil)
