// Package github reads repositories, issues, and search results from
// the GitHub REST API. A token raises rate limits and unlocks private
// data but is optional.
package github

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

const defaultBaseURL = "https://api.github.com"

func init() {
	registry.MustRegister("github", "GitHub repositories, issues, and code search", func() connector.Connector {
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
		Base:    connector.NewBase("github", "GitHub repositories, issues, and code search", "github"),
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
				Name:        "token",
				Label:       "Personal access token",
				Type:        types.FieldSecret,
				Required:    false,
				Description: "Optional; raises rate limits and unlocks private repositories.",
			},
		},
	}
}

func (c *Connector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	return types.ListToolsResult{Tools: []types.Tool{
		{
			Name:        "get_repository",
			Description: "Fetch repository metadata.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner": map[string]any{"type": "string"},
					"repo":  map[string]any{"type": "string"},
				},
				"required":             []any{"owner", "repo"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "get_issue",
			Description: "Fetch one issue or pull request.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner":  map[string]any{"type": "string"},
					"repo":   map[string]any{"type": "string"},
					"number": map[string]any{"type": []any{"string", "integer"}},
				},
				"required":             []any{"owner", "repo", "number"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "search",
			Description: "Search repositories.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":    map[string]any{"type": "string"},
					"per_page": map[string]any{"type": "integer"},
				},
				"required":             []any{"query"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	switch name {
	case "get_repository":
		return c.getRepository(ctx, arguments)
	case "get_issue":
		return c.getIssue(ctx, arguments)
	case "search":
		return c.search(ctx, arguments)
	default:
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
}

func (c *Connector) getRepository(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	owner, _ := arguments["owner"].(string)
	repo, _ := arguments["repo"].(string)
	if owner == "" || repo == "" {
		return types.CallToolResult{}, connector.InvalidParams("owner and repo are required")
	}

	body, err := httpx.GetJSON(ctx, c.client,
		fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo)), c.headers())
	if err != nil {
		return types.CallToolResult{}, err
	}

	description, _ := body["description"].(string)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(description)},
		StructuredContent: body,
	}, nil
}

func (c *Connector) getIssue(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	owner, _ := arguments["owner"].(string)
	repo, _ := arguments["repo"].(string)
	number := stringArg(arguments["number"])
	if owner == "" || repo == "" || number == "" {
		return types.CallToolResult{}, connector.InvalidParams("owner, repo, and number are required")
	}

	body, err := httpx.GetJSON(ctx, c.client,
		fmt.Sprintf("%s/repos/%s/%s/issues/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number), c.headers())
	if err != nil {
		return types.CallToolResult{}, err
	}

	title, _ := body["title"].(string)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(title)},
		StructuredContent: body,
	}, nil
}

func (c *Connector) search(ctx context.Context, arguments map[string]any) (types.CallToolResult, error) {
	query, _ := arguments["query"].(string)
	if query == "" {
		return types.CallToolResult{}, connector.InvalidParams("query is required")
	}
	perPage := 10
	if n, ok := arguments["per_page"].(float64); ok && n > 0 {
		perPage = int(n)
	}

	body, err := httpx.GetJSON(ctx, c.client,
		fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d", c.baseURL, url.QueryEscape(query), perPage), c.headers())
	if err != nil {
		return types.CallToolResult{}, err
	}

	items, _ := body["items"].([]any)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%d repositories for %q", len(items), query))},
		StructuredContent: body,
	}, nil
}

func (c *Connector) TestAuth(ctx context.Context) error {
	if c.AuthValue("token") == "" {
		return nil
	}
	_, err := httpx.GetJSON(ctx, c.client, c.baseURL+"/user", c.headers())
	return err
}

func (c *Connector) headers() map[string]string {
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if token := c.AuthValue("token"); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

func stringArg(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return fmt.Sprintf("%d", int64(n))
	default:
		return ""
	}
}

var _ connector.Connector = (*Connector)(nil)
