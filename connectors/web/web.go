// Package web fetches arbitrary URLs and extracts readable text from
// HTML and PDF responses.
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/cpupool"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

const maxTextLength = 50000

func init() {
	registry.MustRegister("web", "Generic web page fetcher", func() connector.Connector {
		return New()
	})
}

type Connector struct {
	connector.Base
	client *http.Client
	pool   *cpupool.Pool
}

type Option func(*Connector)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		if client != nil {
			c.client = client
		}
	}
}

func WithPool(pool *cpupool.Pool) Option {
	return func(c *Connector) {
		if pool != nil {
			c.pool = pool
		}
	}
}

func New(opts ...Option) *Connector {
	c := &Connector{
		Base:   connector.NewBase("web", "Generic web page fetcher", "web"),
		client: httpx.NewClient(),
		pool:   cpupool.Default(),
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
			Name:        "fetch",
			Description: "Fetch a URL and extract its readable text. Handles HTML and PDF.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string"},
				},
				"required":             []any{"url"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	if name != "fetch" {
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
	pageURL, _ := arguments["url"].(string)
	if pageURL == "" {
		return types.CallToolResult{}, connector.InvalidParams("url is required")
	}

	contentType, raw, err := c.fetch(ctx, pageURL)
	if err != nil {
		return types.CallToolResult{}, err
	}

	var title, text string
	switch {
	case strings.Contains(contentType, "application/pdf"):
		text, err = cpupool.Run(ctx, c.pool, func() (string, error) {
			return extractPDFText(raw)
		})
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		type page struct{ title, text string }
		var p page
		p, err = cpupool.Run(ctx, c.pool, func() (page, error) {
			doc, perr := html.Parse(bytes.NewReader(raw))
			if perr != nil {
				return page{}, connector.ParseError("failed to parse html: %v", perr)
			}
			return page{title: extractTitle(doc), text: extractText(doc)}, nil
		})
		title, text = p.title, p.text
	default:
		text = string(raw)
	}
	if err != nil {
		return types.CallToolResult{}, err
	}

	if blockedContent(text) {
		return types.CallToolResult{}, connector.Blocked("page at %s is behind a bot challenge", pageURL)
	}
	if len(text) > maxTextLength {
		text = text[:maxTextLength] + "\n[truncated]"
	}

	structured := map[string]any{
		"url":          pageURL,
		"content_type": contentType,
		"title":        title,
		"text":         text,
	}
	summary := title
	if summary == "" {
		summary = pageURL
	}
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%s (%d chars)", summary, len(text)))},
		StructuredContent: structured,
	}, nil
}

func (c *Connector) fetch(ctx context.Context, pageURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil, connector.InvalidInput("bad url %q: %v", pageURL, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; rzn-datasourcer/0.1)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, connector.Timeout("fetch cancelled: %v", ctx.Err())
		}
		return "", nil, connector.Upstream("fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return "", nil, connector.Blocked("server refused the request with status %d", resp.StatusCode)
	}
	if err := httpx.CheckStatus(resp); err != nil {
		return "", nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return "", nil, connector.Upstream("failed to read response body", err)
	}
	return resp.Header.Get("Content-Type"), raw, nil
}

// blockedContent spots bot-challenge interstitials that come back with
// a 200 status.
func blockedContent(text string) bool {
	if len(text) > 2000 {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{
		"verify you are human",
		"enable javascript and cookies",
		"checking your browser",
		"cloudflare ray id",
		"captcha",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return title
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func extractText(doc *html.Node) string {
	var sb strings.Builder
	extractTextRecursive(doc, &sb)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sb.String(), " "))
}

func extractTextRecursive(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "nav", "footer", "header":
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		extractTextRecursive(child, sb)
	}
}

func extractPDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", connector.ParseError("failed to open pdf: %v", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", connector.ParseError("pdf contains no extractable text")
	}
	return text, nil
}

var _ connector.Connector = (*Connector)(nil)
