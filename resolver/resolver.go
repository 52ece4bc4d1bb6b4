// Package resolver maps free-form identifiers (URLs, DOIs, bare IDs)
// to a concrete (connector, tool, arguments) invocation. Rules are
// ordered; the first match wins.
package resolver

import (
	"regexp"
	"strings"
)

// Resolution is one resolved invocation.
type Resolution struct {
	Connector string         `json:"connector"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

type rule struct {
	name    string
	example string
	re      *regexp.Regexp
	build   func(m []string) Resolution
}

var rules = []rule{
	{
		name:    "youtube video URL",
		example: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		re:      regexp.MustCompile(`^https?://(?:www\.)?(?:youtube\.com/(?:watch\?v=|shorts/)|youtu\.be/)([A-Za-z0-9_-]{6,})`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "youtube", Tool: "get_video", Arguments: map[string]any{"video_id": m[1]}}
		},
	},
	{
		name:    "hacker news item URL",
		example: "https://news.ycombinator.com/item?id=38865518",
		re:      regexp.MustCompile(`^https?://news\.ycombinator\.com/item\?id=(\d+)`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "hackernews", Tool: "get_post", Arguments: map[string]any{"item_id": m[1]}}
		},
	},
	{
		name:    "biorxiv/medrxiv content URL",
		example: "https://www.biorxiv.org/content/10.1101/2023.12.01.569584v1",
		re:      regexp.MustCompile(`^https?://(?:www\.)?(biorxiv|medrxiv)\.org/content/([^?#]+)`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "biorxiv",
				Tool:      "get_preprint_by_doi",
				Arguments: map[string]any{"doi": trimPreprintSuffix(m[2]), "server": m[1]},
			}
		},
	},
	{
		name:    "biorxiv scheme",
		example: "biorxiv:10.1101/2023.12.01.569584v1",
		re:      regexp.MustCompile(`^(biorxiv|medrxiv):(\S+)$`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "biorxiv",
				Tool:      "get_preprint_by_doi",
				Arguments: map[string]any{"doi": m[2], "server": m[1]},
			}
		},
	},
	{
		name:    "discord channel URL",
		example: "https://discord.com/channels/1012345/1098765",
		re:      regexp.MustCompile(`^https?://(?:www\.)?discord\.com/channels/\d+/(\d+)`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "discord", Tool: "read_messages", Arguments: map[string]any{"channel_id": m[1]}}
		},
	},
	{
		name:    "arxiv URL",
		example: "https://arxiv.org/abs/2303.08774",
		re:      regexp.MustCompile(`^https?://(?:www\.)?arxiv\.org/(?:abs|pdf)/([0-9]{4}\.[0-9]{4,5}(?:v\d+)?)`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "arxiv", Tool: "get_paper", Arguments: map[string]any{"paper_id": m[1]}}
		},
	},
	{
		name:    "arxiv id",
		example: "2303.08774",
		re:      regexp.MustCompile(`^(?:arxiv:)?([0-9]{4}\.[0-9]{4,5}(?:v\d+)?)$`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "arxiv", Tool: "get_paper", Arguments: map[string]any{"paper_id": m[1]}}
		},
	},
	{
		name:    "pubmed URL",
		example: "https://pubmed.ncbi.nlm.nih.gov/37622654/",
		re:      regexp.MustCompile(`^https?://pubmed\.ncbi\.nlm\.nih\.gov/(\d+)`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "pubmed", Tool: "get_article", Arguments: map[string]any{"pmid": m[1]}}
		},
	},
	{
		name:    "pmid",
		example: "pmid:37622654",
		re:      regexp.MustCompile(`^pmid:(\d+)$`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "pubmed", Tool: "get_article", Arguments: map[string]any{"pmid": m[1]}}
		},
	},
	{
		name:    "doi URL or prefix",
		example: "https://doi.org/10.1038/s41586-023-06792-0",
		re:      regexp.MustCompile(`^(?:https?://(?:dx\.)?doi\.org/|doi:)(10\.\d{4,9}/\S+)$`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "semantic-scholar", Tool: "get_paper", Arguments: map[string]any{"paper_id": "DOI:" + m[1]}}
		},
	},
	{
		name:    "wikipedia article URL",
		example: "https://en.wikipedia.org/wiki/Borges",
		re:      regexp.MustCompile(`^https?://([a-z]{2,3})\.wikipedia\.org/wiki/([^?#]+)`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "wikipedia",
				Tool:      "get_page",
				Arguments: map[string]any{"title": m[2], "language": m[1]},
			}
		},
	},
	{
		name:    "github issue or pull URL",
		example: "https://github.com/rust-lang/rust/issues/1",
		re:      regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/]+)/([^/]+)/(?:issues|pull)/(\d+)`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "github",
				Tool:      "get_issue",
				Arguments: map[string]any{"owner": m[1], "repo": m[2], "number": m[3]},
			}
		},
	},
	{
		name:    "github repository URL",
		example: "https://github.com/golang/go",
		re:      regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/?#]+)/([^/?#]+)/?$`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "github",
				Tool:      "get_repository",
				Arguments: map[string]any{"owner": m[1], "repo": strings.TrimSuffix(m[2], ".git")},
			}
		},
	},
	{
		name:    "reddit post URL",
		example: "https://www.reddit.com/r/golang/comments/abc123/title/",
		re:      regexp.MustCompile(`^https?://(?:www\.|old\.)?reddit\.com/r/[^/]+/comments/\S+`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "reddit", Tool: "get_post", Arguments: map[string]any{"post_url": m[0]}}
		},
	},
	{
		name:    "tweet URL",
		example: "https://x.com/user/status/1234567890",
		re:      regexp.MustCompile(`^https?://(?:www\.)?(?:twitter|x)\.com/[^/]+/status/(\d+)`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "twitter", Tool: "get_tweet", Arguments: map[string]any{"tweet_id": m[1]}}
		},
	},
	{
		name:    "feed URL",
		example: "https://blog.example.com/feed",
		re:      regexp.MustCompile(`^https?://\S+(?:\.xml|\.rss|/feed/?|/rss/?)(?:[?#]\S*)?$`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "rss", Tool: "get_feed", Arguments: map[string]any{"url": m[0]}}
		},
	},
	{
		name:    "web URL",
		example: "https://example.com/article",
		re:      regexp.MustCompile(`^https?://\S+$`),
		build: func(m []string) Resolution {
			return Resolution{Connector: "web", Tool: "fetch", Arguments: map[string]any{"url": m[0]}}
		},
	},
	{
		name:    "github owner/repo",
		example: "golang/go",
		re:      regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_.-]*)/([A-Za-z0-9][A-Za-z0-9_.-]*)$`),
		build: func(m []string) Resolution {
			return Resolution{
				Connector: "github",
				Tool:      "get_repository",
				Arguments: map[string]any{"owner": m[1], "repo": m[2]},
			}
		},
	},
}

// trimPreprintSuffix strips the view-format suffixes biorxiv appends
// to content paths, keeping the versioned DOI.
func trimPreprintSuffix(doi string) string {
	doi = strings.TrimSuffix(doi, "/")
	for _, suffix := range []string{".full.pdf", ".full", ".abstract"} {
		doi = strings.TrimSuffix(doi, suffix)
	}
	return doi
}

// Resolve returns the first matching invocation for input.
func Resolve(input string) (Resolution, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolution{}, false
	}
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(input); m != nil {
			return r.build(m), true
		}
	}
	return Resolution{}, false
}

// ResolveAll returns every rule that matches, in rule order. Useful
// for disambiguation surfaces.
func ResolveAll(input string) []Resolution {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	out := make([]Resolution, 0, 2)
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(input); m != nil {
			out = append(out, r.build(m))
		}
	}
	return out
}

// CanResolve reports whether any rule matches input.
func CanResolve(input string) bool {
	_, ok := Resolve(input)
	return ok
}

// PatternInfo describes one rule for help output.
type PatternInfo struct {
	Name    string `json:"name"`
	Example string `json:"example"`
}

// Patterns lists the rule table in matching order.
func Patterns() []PatternInfo {
	out := make([]PatternInfo, 0, len(rules))
	for _, r := range rules {
		out = append(out, PatternInfo{Name: r.name, Example: r.example})
	}
	return out
}
