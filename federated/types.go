// Package federated fans a single query out across several connectors
// in parallel, normalizes and deduplicates the results, and reports
// per-source outcomes without ever failing the aggregate.
package federated

// UnifiedSearchResult is the normal form every source's results are
// mapped into. Raw preserves the source item untouched.
type UnifiedSearchResult struct {
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	URL       string   `json:"url,omitempty"`
	Snippet   string   `json:"snippet,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Published string   `json:"published,omitempty"`
	Raw       any      `json:"raw,omitempty"`
}

// Source error kinds.
const (
	ErrorKindMissingConnector = "missing_connector"
	ErrorKindTimeout          = "timeout"
	ErrorKindError            = "error"
)

// SourceError describes why one source contributed nothing.
type SourceError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SourceReport is the per-source entry of a federated result. Every
// requested source gets exactly one.
type SourceReport struct {
	Count      int          `json:"count"`
	DurationMs int64        `json:"duration_ms"`
	Error      *SourceError `json:"error,omitempty"`
}

// ResultMeta summarizes how the aggregate was produced.
type ResultMeta struct {
	GlobalTimeoutMs  int64  `json:"global_timeout_ms"`
	MergeMode        string `json:"merge_mode"`
	DedupStrategy    string `json:"dedup_strategy"`
	TotalBeforeDedup int    `json:"total_before_dedup"`
	TotalAfterDedup  int    `json:"total_after_dedup"`
}

// FederatedResult is the aggregate answer. Partial failures appear in
// PerSource; Results holds whatever succeeded.
type FederatedResult struct {
	Query     string                  `json:"query"`
	Results   []UnifiedSearchResult   `json:"results"`
	PerSource map[string]SourceReport `json:"per_source"`
	Meta      ResultMeta              `json:"meta"`
}
