package federated

// Field mappings tried in order when normalizing a source item.
var (
	listKeys      = []string{"results", "hits", "items", "articles", "stories", "entries", "papers", "pages", "repositories", "data"}
	titleKeys     = []string{"title", "name", "headline", "full_name"}
	urlKeys       = []string{"url", "link", "html_url", "story_url", "permalink"}
	snippetKeys   = []string{"snippet", "description", "summary", "abstract", "text", "content", "story_text"}
	scoreKeys     = []string{"score", "points", "relevance_score", "relevance"}
	publishedKeys = []string{"published", "published_at", "created_at", "date", "pub_date", "updated_at"}
)

// normalize maps a tool's structured content into the federation
// normal form. Unknown shapes produce no results; the raw item is
// always preserved.
func normalize(source string, structured any) []UnifiedSearchResult {
	obj, ok := structured.(map[string]any)
	if !ok {
		return nil
	}
	var list []any
	for _, key := range listKeys {
		if l, ok := obj[key].([]any); ok {
			list = l
			break
		}
	}
	if list == nil {
		return nil
	}

	out := make([]UnifiedSearchResult, 0, len(list))
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		r := UnifiedSearchResult{
			Source:    source,
			Title:     firstString(item, titleKeys),
			URL:       firstString(item, urlKeys),
			Snippet:   firstString(item, snippetKeys),
			Published: firstString(item, publishedKeys),
			Raw:       item,
		}
		for _, key := range scoreKeys {
			if v, ok := item[key].(float64); ok {
				score := v
				r.Score = &score
				break
			}
		}
		out = append(out, r)
	}
	return out
}

func firstString(item map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
