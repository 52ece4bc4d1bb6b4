// Package rss fetches and parses RSS 2.0 and Atom feeds.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/connectors/internal/httpx"
	"github.com/rzn-labs/datasourcer/cpupool"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

func init() {
	registry.MustRegister("rss", "RSS and Atom feed reader", func() connector.Connector {
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
		Base:   connector.NewBase("rss", "RSS and Atom feed reader", "rss"),
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
			Name:        "get_feed",
			Description: "Fetch and parse a feed URL.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":   map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer"},
				},
				"required":             []any{"url"},
				"additionalProperties": false,
			},
		},
	}}, nil
}

type rssDoc struct {
	Channel struct {
		Title string    `xml:"title"`
		Link  string    `xml:"link"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

type atomDoc struct {
	Title   string `xml:"title"`
	Entries []struct {
		Title   string `xml:"title"`
		Links   []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Summary string `xml:"summary"`
		Updated string `xml:"updated"`
		ID      string `xml:"id"`
	} `xml:"entry"`
}

func (c *Connector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	if name != "get_feed" {
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
	feedURL, _ := arguments["url"].(string)
	if feedURL == "" {
		return types.CallToolResult{}, connector.InvalidParams("url is required")
	}
	limit := 0
	if n, ok := arguments["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	raw, err := c.fetch(ctx, feedURL)
	if err != nil {
		return types.CallToolResult{}, err
	}

	// Feed bodies run to megabytes, so the parse goes through the
	// shared CPU pool like HTML and PDF extraction.
	parsed, err := cpupool.Run(ctx, c.pool, func() (parsedFeed, error) {
		title, entries, err := parseFeed(raw)
		return parsedFeed{title: title, entries: entries}, err
	})
	if err != nil {
		return types.CallToolResult{}, err
	}
	title, entries := parsed.title, parsed.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	structured := map[string]any{
		"url":     feedURL,
		"title":   title,
		"entries": entries,
	}
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(fmt.Sprintf("%s: %d entries", title, len(entries)))},
		StructuredContent: structured,
	}, nil
}

func (c *Connector) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, connector.InvalidInput("bad feed url %q: %v", feedURL, err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, connector.Timeout("feed fetch cancelled: %v", ctx.Err())
		}
		return nil, connector.Upstream("feed fetch failed", err)
	}
	defer resp.Body.Close()
	if err := httpx.CheckStatus(resp); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, connector.Upstream("failed to read feed body", err)
	}
	return raw, nil
}

type parsedFeed struct {
	title   string
	entries []any
}

// parseFeed tries RSS 2.0 first, then Atom.
func parseFeed(raw []byte) (string, []any, error) {
	var rss rssDoc
	if err := xml.Unmarshal(raw, &rss); err == nil && len(rss.Channel.Items) > 0 {
		entries := make([]any, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			entries = append(entries, map[string]any{
				"title":     item.Title,
				"url":       item.Link,
				"summary":   item.Description,
				"published": item.PubDate,
				"id":        item.GUID,
			})
		}
		return rss.Channel.Title, entries, nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(raw, &atom); err == nil && len(atom.Entries) > 0 {
		entries := make([]any, 0, len(atom.Entries))
		for _, entry := range atom.Entries {
			link := ""
			for _, l := range entry.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			entries = append(entries, map[string]any{
				"title":     entry.Title,
				"url":       link,
				"summary":   entry.Summary,
				"published": entry.Updated,
				"id":        entry.ID,
			})
		}
		return atom.Title, entries, nil
	}

	return "", nil, connector.ParseError("content is neither a parsable RSS nor Atom feed")
}

var _ connector.Connector = (*Connector)(nil)
