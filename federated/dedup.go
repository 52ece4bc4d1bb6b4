package federated

import (
	"strings"
)

// dedupContext carries what the collapse step needs to pick a
// representative: the weight of each source and the order sources
// finished in.
type dedupContext struct {
	weights    map[string]float64
	completion map[string]int
}

func (d dedupContext) better(a, b UnifiedSearchResult) bool {
	wa, wb := d.weights[a.Source], d.weights[b.Source]
	if wa != wb {
		return wa > wb
	}
	return d.completion[a.Source] < d.completion[b.Source]
}

// dedup collapses duplicates under the given strategy. The
// representative of each duplicate group is the entry from the
// highest-weighted source, ties broken by earliest completion. Output
// order is deterministic for a fixed input.
func dedup(results []UnifiedSearchResult, strategy string, threshold float64, dctx dedupContext) []UnifiedSearchResult {
	switch strategy {
	case "", DedupNone:
		return results
	case DedupExactURL:
		return dedupByKey(results, func(r UnifiedSearchResult) string { return r.URL }, dctx)
	case DedupNormalizedURL:
		return dedupByKey(results, func(r UnifiedSearchResult) string { return NormalizeURL(r.URL) }, dctx)
	case DedupTitleSimilarity:
		if threshold <= 0 {
			threshold = DefaultDedupThreshold
		}
		return dedupByTitle(results, threshold, dctx)
	default:
		return results
	}
}

// dedupByKey keeps one result per key. Results with an empty key are
// never collapsed.
func dedupByKey(results []UnifiedSearchResult, key func(UnifiedSearchResult) string, dctx dedupContext) []UnifiedSearchResult {
	index := map[string]int{}
	out := make([]UnifiedSearchResult, 0, len(results))
	for _, r := range results {
		k := key(r)
		if k == "" {
			out = append(out, r)
			continue
		}
		if at, seen := index[k]; seen {
			if dctx.better(r, out[at]) {
				out[at] = r
			}
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

func dedupByTitle(results []UnifiedSearchResult, threshold float64, dctx dedupContext) []UnifiedSearchResult {
	type kept struct {
		tokens map[string]bool
	}
	seen := make([]kept, 0, len(results))
	out := make([]UnifiedSearchResult, 0, len(results))
	for _, r := range results {
		tokens := titleTokens(r.Title)
		// Untitled results never collapse, same as empty keys in
		// dedupByKey.
		if len(tokens) == 0 {
			seen = append(seen, kept{tokens: tokens})
			out = append(out, r)
			continue
		}
		matched := -1
		for i := range seen {
			if jaccard(tokens, seen[i].tokens) >= threshold {
				matched = i
				break
			}
		}
		if matched >= 0 {
			if dctx.better(r, out[matched]) {
				out[matched] = r
				seen[matched] = kept{tokens: tokens}
			}
			continue
		}
		seen = append(seen, kept{tokens: tokens})
		out = append(out, r)
	}
	return out
}

// NormalizeURL strips the parts of a URL that vary without changing
// the target: scheme, leading www., query, fragment, trailing slash.
// Comparison is case-insensitive.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return ""
	}
	for _, prefix := range []string{"https://", "http://"} {
		u = strings.TrimPrefix(u, prefix)
	}
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}

func titleTokens(title string) map[string]bool {
	tokens := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(title)) {
		tokens[t] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
