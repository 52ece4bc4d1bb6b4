package federated

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

// limitKeys are the argument names search tools use for their result
// cap, in preference order.
var limitKeys = []string{"limit", "max_results", "hitsPerPage", "per_page"}

// Engine runs federated searches against a registry.
type Engine struct {
	registry *registry.Registry
	logger   *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type sourceOutcome struct {
	source  string
	results []UnifiedSearchResult
	report  SourceReport
}

// Search fans query out across the profile's sources. It always
// returns an aggregate; per-source failures are reported, never
// propagated.
func (e *Engine) Search(ctx context.Context, query string, profile Profile) FederatedResult {
	globalTimeout := time.Duration(profile.GlobalTimeoutMs) * time.Millisecond
	if globalTimeout <= 0 {
		globalTimeout = DefaultGlobalTimeoutMs * time.Millisecond
	}
	mergeMode := profile.MergeMode
	if mergeMode == "" {
		mergeMode = DefaultMergeMode
	}
	dedupStrategy := profile.Dedup
	if dedupStrategy == "" {
		dedupStrategy = DefaultDedup
	}

	globalCtx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	outcomes := make(chan sourceOutcome, len(profile.Sources))
	for _, spec := range profile.Sources {
		go func(spec SourceSpec) {
			outcomes <- e.searchSource(globalCtx, query, spec)
		}(spec)
	}

	perSource := make(map[string]SourceReport, len(profile.Sources))
	collected := make(map[string][]UnifiedSearchResult, len(profile.Sources))
	completion := make(map[string]int, len(profile.Sources))
	started := time.Now()

	pending := len(profile.Sources)
	for pending > 0 {
		select {
		case outcome := <-outcomes:
			pending--
			perSource[outcome.source] = outcome.report
			collected[outcome.source] = outcome.results
			if _, seen := completion[outcome.source]; !seen {
				completion[outcome.source] = len(completion)
			}
		case <-globalCtx.Done():
			pending = 0
		}
	}

	// Sources still in flight at the global deadline.
	elapsed := time.Since(started).Milliseconds()
	for _, spec := range profile.Sources {
		if _, ok := perSource[spec.Connector]; ok {
			continue
		}
		perSource[spec.Connector] = SourceReport{
			DurationMs: elapsed,
			Error:      &SourceError{Kind: ErrorKindTimeout, Code: string(connector.KindTimeout), Message: "global deadline elapsed"},
		}
	}

	weights := make(map[string]float64, len(profile.Sources))
	for _, spec := range profile.Sources {
		w := spec.Weight
		if w <= 0 {
			w = 1.0
		}
		weights[spec.Connector] = w
	}

	merged := merge(profile.Sources, collected, weights, mergeMode)
	before := len(merged)
	deduped := dedup(merged, dedupStrategy, profile.DedupThreshold, dedupContext{
		weights:    weights,
		completion: completion,
	})

	return FederatedResult{
		Query:     query,
		Results:   deduped,
		PerSource: perSource,
		Meta: ResultMeta{
			GlobalTimeoutMs:  globalTimeout.Milliseconds(),
			MergeMode:        mergeMode,
			DedupStrategy:    dedupStrategy,
			TotalBeforeDedup: before,
			TotalAfterDedup:  len(deduped),
		},
	}
}

func (e *Engine) searchSource(ctx context.Context, query string, spec SourceSpec) sourceOutcome {
	started := time.Now()
	fail := func(err *SourceError) sourceOutcome {
		return sourceOutcome{
			source: spec.Connector,
			report: SourceReport{DurationMs: time.Since(started).Milliseconds(), Error: err},
		}
	}

	c, ok := e.registry.GetProvider(spec.Connector)
	if !ok {
		return fail(&SourceError{Kind: ErrorKindMissingConnector, Message: "connector is not enabled"})
	}

	timeout := time.Duration(spec.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = DefaultTimeoutMs * time.Millisecond
	}
	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tool, ok := e.searchTool(srcCtx, c)
	if !ok {
		return fail(&SourceError{Kind: ErrorKindError, Code: string(connector.KindToolNotFound), Message: "connector has no search tool"})
	}

	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args := map[string]any{"query": query}
	args[limitKey(tool)] = limit
	for k, v := range spec.ExtraArgs {
		args[k] = v
	}

	result, err := c.CallTool(srcCtx, tool.Name, args)
	if err != nil {
		kind := ErrorKindError
		if connector.KindOf(err) == connector.KindTimeout {
			kind = ErrorKindTimeout
		}
		e.logger.Debug("federated source failed",
			"source", spec.Connector, "tool", tool.Name, "code", connector.CodeOf(err))
		return fail(&SourceError{Kind: kind, Code: connector.CodeOf(err), Message: err.Error()})
	}

	results := normalize(spec.Connector, result.StructuredContent)
	return sourceOutcome{
		source:  spec.Connector,
		results: results,
		report:  SourceReport{Count: len(results), DurationMs: time.Since(started).Milliseconds()},
	}
}

// searchTool picks the source's search entry point: a tool named
// exactly "search" wins, otherwise the first tool whose name contains
// "search" or "query".
func (e *Engine) searchTool(ctx context.Context, c connector.Connector) (types.Tool, bool) {
	listed, err := c.ListTools(ctx, "")
	if err != nil {
		return types.Tool{}, false
	}
	var fallback *types.Tool
	for i, tool := range listed.Tools {
		if tool.Name == "search" {
			return tool, true
		}
		if fallback == nil && (strings.Contains(tool.Name, "search") || strings.Contains(tool.Name, "query")) {
			fallback = &listed.Tools[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types.Tool{}, false
}

// limitKey translates the generic limit into the field this tool
// declares, defaulting to "limit".
func limitKey(tool types.Tool) string {
	props, _ := tool.InputSchema["properties"].(map[string]any)
	for _, key := range limitKeys {
		if _, ok := props[key]; ok {
			return key
		}
	}
	return limitKeys[0]
}

func merge(sources []SourceSpec, collected map[string][]UnifiedSearchResult, weights map[string]float64, mode string) []UnifiedSearchResult {
	switch mode {
	case MergeRanked:
		type scored struct {
			result UnifiedSearchResult
			score  float64
		}
		all := make([]scored, 0, 32)
		for _, spec := range sources {
			for rank, r := range collected[spec.Connector] {
				all = append(all, scored{result: r, score: weights[spec.Connector] * (1.0 / float64(rank+1))})
			}
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
		out := make([]UnifiedSearchResult, len(all))
		for i, s := range all {
			out[i] = s.result
		}
		return out

	case MergeGrouped:
		out := make([]UnifiedSearchResult, 0, 32)
		for _, spec := range sources {
			out = append(out, collected[spec.Connector]...)
		}
		return out

	default: // interleave
		out := make([]UnifiedSearchResult, 0, 32)
		for round := 0; ; round++ {
			took := false
			for _, spec := range sources {
				list := collected[spec.Connector]
				if round < len(list) {
					out = append(out, list[round])
					took = true
				}
			}
			if !took {
				return out
			}
		}
	}
}
