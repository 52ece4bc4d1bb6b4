package usage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// resultKeys are the structured-content fields that make a tool result
// look like a result list, checked in order.
var resultKeys = []string{
	"results", "articles", "items", "hits", "stories", "videos",
	"papers", "posts", "messages", "entries", "tweets", "repositories",
	"issues", "pages", "data",
}

// Manager turns finished tool calls into usage events. Estimation
// failures never fail the call; the event is still recorded with no
// cost figure.
type Manager struct {
	store   Store
	catalog *Catalog
	sinks   []Sink
	logger  *slog.Logger
}

func NewManager(store Store, catalog *Catalog) *Manager {
	return &Manager{
		store:   store,
		catalog: catalog,
		logger:  slog.Default(),
	}
}

// AddSink registers an additional consumer notified after each
// recorded event. Sink failures are logged, never propagated.
func (m *Manager) AddSink(sink Sink) {
	if m == nil || sink == nil {
		return
	}
	m.sinks = append(m.sinks, sink)
}

// CallInfo describes one finished tool call for estimation.
type CallInfo struct {
	Connector string
	Tool      string
	Provider  string
	RunID     string
	RequestID string
	KeyID     string
	Status    Status
	Duration  time.Duration
	Model     string

	// Structured is the tool result's structured content, nil on the
	// error path.
	Structured any
}

// EstimateEvent derives units from the structured content, prices the
// call, and returns the event together with the meta payload surfaced
// back to the caller.
func (m *Manager) EstimateEvent(info CallInfo) (Event, map[string]any) {
	event := Event{
		Timestamp:  time.Now().UTC(),
		RunID:      info.RunID,
		RequestID:  info.RequestID,
		Connector:  info.Connector,
		Tool:       info.Tool,
		Provider:   info.Provider,
		KeyID:      info.KeyID,
		Status:     info.Status,
		DurationMs: info.Duration.Milliseconds(),
		Units:      extractUnits(info.Structured),
		Estimated:  true,
		Model:      info.Model,
	}
	event.Normalize()

	category := CategoryAuthOnly
	if m != nil && m.catalog != nil {
		if entry, ok := m.catalog.Lookup(info.Connector, info.Tool, info.Model); ok {
			category = entry.Category
			event.Currency = entry.Currency
			event.PricingVersion = m.catalog.Version()
			if entry.Model.Kind == ModelProviderReported {
				if reported, ok := reportedCost(info.Structured); ok {
					event.CostUSD = &reported
					event.Estimated = false
				}
			} else if cost, ok := entry.Cost(event.Units); ok {
				event.CostUSD = &cost
			}
		}
	}

	meta := map[string]any{
		"run_id":   event.RunID,
		"category": string(category),
	}
	cost := map[string]any{
		"estimated":       event.Estimated,
		"pricing_version": event.PricingVersion,
	}
	if event.CostUSD != nil {
		cost["amount"] = *event.CostUSD
	}
	meta["cost"] = cost
	return event, meta
}

// Record appends the event and fans it out to any sinks.
func (m *Manager) Record(ctx context.Context, event Event) error {
	if m == nil || m.store == nil {
		return nil
	}
	if err := m.store.Record(ctx, event); err != nil {
		return err
	}
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			m.logger.Warn("usage sink emit failed", "sink", sink, "error", err)
		}
	}
	return nil
}

// LoadAll reads the full usage log.
func (m *Manager) LoadAll(ctx context.Context) ([]Event, error) {
	if m == nil || m.store == nil {
		return nil, nil
	}
	return m.store.LoadAll(ctx)
}

// Catalog exposes the pricing table for listing surfaces.
func (m *Manager) Catalog() *Catalog {
	if m == nil {
		return nil
	}
	return m.catalog
}

func extractUnits(structured any) Units {
	units := Units{Requests: 1}
	obj, ok := structured.(map[string]any)
	if !ok {
		return units
	}

	for _, key := range resultKeys {
		if list, ok := obj[key].([]any); ok {
			n := int64(len(list))
			units.Results = &n
			break
		}
	}

	if raw, ok := obj["usage"].(map[string]any); ok {
		if n, ok := intField(raw, "input_tokens", "prompt_tokens"); ok {
			units.InputTokens = &n
		}
		if n, ok := intField(raw, "output_tokens", "completion_tokens"); ok {
			units.OutputTokens = &n
		}
	}
	return units
}

// reportedCost pulls a provider-reported cost out of the structured
// content, either top-level or inside the usage object.
func reportedCost(structured any) (float64, bool) {
	obj, ok := structured.(map[string]any)
	if !ok {
		return 0, false
	}
	if v, ok := floatValue(obj["cost"]); ok {
		return v, true
	}
	if raw, ok := obj["usage"].(map[string]any); ok {
		if v, ok := floatValue(raw["cost"]); ok {
			return v, true
		}
	}
	return 0, false
}

func intField(obj map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v, ok := floatValue(obj[key]); ok {
			return int64(v), true
		}
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
