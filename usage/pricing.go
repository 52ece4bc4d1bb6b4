package usage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed pricing.yaml
var defaultPricingYAML []byte

// ModelKind tags a pricing formula.
type ModelKind string

const (
	ModelPerRequest            ModelKind = "per_request"
	ModelPerResult             ModelKind = "per_result"
	ModelPerToken              ModelKind = "per_token"
	ModelPerTokenPlusRequest   ModelKind = "per_token_plus_request"
	ModelPerRequestPlusResults ModelKind = "per_request_plus_results"
	ModelProviderReported      ModelKind = "provider_reported"
	ModelUnknown               ModelKind = "unknown"
)

// PricingModel is the formula from units to cost. Only the fields the
// kind uses are meaningful.
type PricingModel struct {
	Kind            ModelKind `yaml:"kind" json:"kind"`
	UnitCostUSD     float64   `yaml:"unit_cost_usd,omitempty" json:"unit_cost_usd,omitempty"`
	InputCostUSD    float64   `yaml:"input_cost_usd,omitempty" json:"input_cost_usd,omitempty"`
	OutputCostUSD   float64   `yaml:"output_cost_usd,omitempty" json:"output_cost_usd,omitempty"`
	RequestCostUSD  float64   `yaml:"request_cost_usd,omitempty" json:"request_cost_usd,omitempty"`
	BaseCostUSD     float64   `yaml:"base_cost_usd,omitempty" json:"base_cost_usd,omitempty"`
	IncludedResults int64     `yaml:"included_results,omitempty" json:"included_results,omitempty"`
	PerResultUSD    float64   `yaml:"per_result_usd,omitempty" json:"per_result_usd,omitempty"`
}

// Entry maps a "connector.tool" pattern (glob wildcards allowed) onto
// a pricing model. ModelPattern, when set, must additionally match the
// call's model argument.
type Entry struct {
	Pattern      string          `yaml:"pattern" json:"pattern"`
	ModelPattern string          `yaml:"model_pattern,omitempty" json:"model_pattern,omitempty"`
	Category     BillingCategory `yaml:"category" json:"category"`
	Currency     string          `yaml:"currency,omitempty" json:"currency,omitempty"`
	Model        PricingModel    `yaml:"model" json:"model"`
}

type catalogFile struct {
	Version string  `yaml:"version" json:"version"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Catalog is the loaded pricing table. Loaded once per process; an
// optional user overlay is merged in front of the embedded default so
// overlay entries win.
type Catalog struct {
	version string
	entries []Entry
}

// LoadDefault parses the embedded catalog.
func LoadDefault() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(defaultPricingYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse embedded pricing catalog: %w", err)
	}
	return &Catalog{version: file.Version, entries: file.Entries}, nil
}

// LoadWithOverlay loads the default catalog and, when overlayPath
// names an existing JSON file, prepends its entries. A missing overlay
// is not an error.
func LoadWithOverlay(overlayPath string) (*Catalog, error) {
	catalog, err := LoadDefault()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(overlayPath) == "" {
		return catalog, nil
	}
	raw, err := os.ReadFile(overlayPath)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, nil
		}
		return nil, fmt.Errorf("failed to read pricing overlay: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pricing overlay: %w", err)
	}
	catalog.entries = append(append([]Entry{}, file.Entries...), catalog.entries...)
	if file.Version != "" {
		catalog.version = file.Version
	}
	return catalog, nil
}

func (c *Catalog) Version() string {
	if c == nil {
		return ""
	}
	return c.version
}

// Entries returns a copy of the catalog in scan order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return append([]Entry(nil), c.entries...)
}

// Lookup finds the pricing entry for a connector.tool call. Model-
// specific entries win over model-agnostic ones, and literal patterns
// win over wildcarded ones; within each tier the first matching entry
// in scan order is taken.
func (c *Catalog) Lookup(connectorName, tool, model string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	key := connectorName + "." + tool

	if model != "" {
		for _, e := range c.entries {
			if e.ModelPattern == "" {
				continue
			}
			if WildcardMatch(e.Pattern, key) && WildcardMatch(e.ModelPattern, model) {
				return e, true
			}
		}
	}
	for _, e := range c.entries {
		if e.ModelPattern != "" {
			continue
		}
		if !strings.ContainsAny(e.Pattern, "*?") && e.Pattern == key {
			return e, true
		}
	}
	for _, e := range c.entries {
		if e.ModelPattern != "" {
			continue
		}
		if WildcardMatch(e.Pattern, key) {
			return e, true
		}
	}
	return Entry{}, false
}

// Filter narrows the catalog for listing. Filters use the same glob
// matcher against the connector and tool halves of each pattern. The
// catch-all connector pattern "*" is an internal fallback and is
// excluded whenever a connector filter is given.
func (c *Catalog) Filter(connectorFilter, toolFilter, modelFilter string) []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		connPart, toolPart := splitPattern(e.Pattern)
		if connectorFilter != "" {
			if connPart == "*" {
				continue
			}
			if !WildcardMatch(connPart, connectorFilter) && !WildcardMatch(connectorFilter, connPart) {
				continue
			}
		}
		if toolFilter != "" {
			if !WildcardMatch(toolPart, toolFilter) && !WildcardMatch(toolFilter, toolPart) {
				continue
			}
		}
		if modelFilter != "" {
			if e.ModelPattern == "" || !WildcardMatch(e.ModelPattern, modelFilter) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func splitPattern(pattern string) (string, string) {
	if i := strings.Index(pattern, "."); i >= 0 {
		return pattern[:i], pattern[i+1:]
	}
	return pattern, "*"
}

// Cost computes the cost of the given units under entry's model. The
// second return is false when the model cannot produce a figure
// (unknown or provider-reported without a reported amount).
func (e Entry) Cost(units Units) (float64, bool) {
	requests := units.Requests
	if requests <= 0 {
		requests = 1
	}
	var results, in, out int64
	if units.Results != nil {
		results = *units.Results
	}
	if units.InputTokens != nil {
		in = *units.InputTokens
	}
	if units.OutputTokens != nil {
		out = *units.OutputTokens
	}

	m := e.Model
	switch m.Kind {
	case ModelPerRequest:
		return float64(requests) * m.UnitCostUSD, true
	case ModelPerResult:
		return float64(results) * m.UnitCostUSD, true
	case ModelPerToken:
		return float64(in)*m.InputCostUSD + float64(out)*m.OutputCostUSD, true
	case ModelPerTokenPlusRequest:
		return float64(in)*m.InputCostUSD + float64(out)*m.OutputCostUSD + float64(requests)*m.RequestCostUSD, true
	case ModelPerRequestPlusResults:
		extra := results - m.IncludedResults
		if extra < 0 {
			extra = 0
		}
		return m.BaseCostUSD + float64(extra)*m.PerResultUSD, true
	default:
		return 0, false
	}
}
