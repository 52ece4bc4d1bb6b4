package federated

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Defaults applied when a profile leaves a knob unset.
const (
	DefaultLimit           = 10
	DefaultTimeoutMs       = 8000
	DefaultGlobalTimeoutMs = 30000
	DefaultMergeMode       = MergeInterleave
	DefaultDedup           = DedupNormalizedURL
	DefaultDedupThreshold  = 0.85
)

// Merge modes.
const (
	MergeInterleave = "interleave"
	MergeRanked     = "ranked"
	MergeGrouped    = "grouped"
)

// Dedup strategies.
const (
	DedupNone            = "none"
	DedupExactURL        = "exact_url"
	DedupNormalizedURL   = "normalized_url"
	DedupTitleSimilarity = "title_similarity"
)

// SourceSpec configures one connector inside a profile.
type SourceSpec struct {
	Connector string         `yaml:"connector" json:"connector"`
	Limit     int            `yaml:"limit,omitempty" json:"limit,omitempty"`
	TimeoutMs int64          `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Weight    float64        `yaml:"weight,omitempty" json:"weight,omitempty"`
	ExtraArgs map[string]any `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`
}

// Profile is a named bundle of sources plus fan-out defaults. A
// profile can extend another: sources in Add are appended, names in
// Exclude are dropped, and unset top-level knobs inherit.
type Profile struct {
	Name            string       `yaml:"name" json:"name"`
	Description     string       `yaml:"description,omitempty" json:"description,omitempty"`
	Sources         []SourceSpec `yaml:"sources,omitempty" json:"sources,omitempty"`
	GlobalTimeoutMs int64        `yaml:"global_timeout_ms,omitempty" json:"global_timeout_ms,omitempty"`
	MergeMode       string       `yaml:"merge_mode,omitempty" json:"merge_mode,omitempty"`
	Dedup           string       `yaml:"dedup,omitempty" json:"dedup,omitempty"`
	DedupThreshold  float64      `yaml:"dedup_threshold,omitempty" json:"dedup_threshold,omitempty"`
	Extends         string       `yaml:"extends,omitempty" json:"extends,omitempty"`
	Add             []SourceSpec `yaml:"add,omitempty" json:"add,omitempty"`
	Exclude         []string     `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Builtins returns the shipped profiles.
func Builtins() map[string]Profile {
	return map[string]Profile{
		"research": {
			Name:        "research",
			Description: "Academic and reference sources",
			Sources: []SourceSpec{
				{Connector: "wikipedia", Weight: 1.0},
				{Connector: "tavily", Weight: 1.2},
			},
			MergeMode: MergeRanked,
			Dedup:     DedupNormalizedURL,
		},
		"web": {
			Name:        "web",
			Description: "General web search",
			Sources: []SourceSpec{
				{Connector: "tavily", Weight: 1.0},
				{Connector: "wikipedia", Weight: 0.8},
			},
		},
		"code": {
			Name:        "code",
			Description: "Code and developer discussion",
			Sources: []SourceSpec{
				{Connector: "github", Weight: 1.2},
				{Connector: "hackernews", Weight: 1.0},
			},
			MergeMode: MergeRanked,
		},
		"social": {
			Name:        "social",
			Description: "Community discussion",
			Sources: []SourceSpec{
				{Connector: "hackernews", Weight: 1.0},
			},
		},
		"news": {
			Name:        "news",
			Description: "Current stories",
			Sources: []SourceSpec{
				{Connector: "hackernews", Weight: 1.0},
				{Connector: "tavily", Weight: 1.0},
			},
			MergeMode: MergeInterleave,
		},
	}
}

// ProfileStore resolves profile names against user-defined profiles
// layered over the builtins.
type ProfileStore struct {
	profiles map[string]Profile
}

// NewProfileStore loads user profiles from path (YAML mapping of name
// to profile; optional) over the builtins.
func NewProfileStore(path string) (*ProfileStore, error) {
	profiles := Builtins()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read profiles file: %w", err)
			}
		} else {
			var user map[string]Profile
			if err := yaml.Unmarshal(raw, &user); err != nil {
				return nil, fmt.Errorf("failed to parse profiles file: %w", err)
			}
			for name, p := range user {
				if p.Name == "" {
					p.Name = name
				}
				profiles[name] = p
			}
		}
	}
	return &ProfileStore{profiles: profiles}, nil
}

// Get resolves a profile by name, applying the extends chain.
func (s *ProfileStore) Get(name string) (Profile, error) {
	if s == nil {
		return Profile{}, fmt.Errorf("profile store is not initialized")
	}
	return s.resolve(name, map[string]bool{})
}

func (s *ProfileStore) resolve(name string, seen map[string]bool) (Profile, error) {
	if seen[name] {
		return Profile{}, fmt.Errorf("profile %q extends itself", name)
	}
	seen[name] = true

	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	if p.Extends == "" {
		return applyEdits(p), nil
	}

	base, err := s.resolve(p.Extends, seen)
	if err != nil {
		return Profile{}, err
	}
	merged := base
	merged.Name = p.Name
	if p.Description != "" {
		merged.Description = p.Description
	}
	if len(p.Sources) > 0 {
		merged.Sources = p.Sources
	}
	if p.GlobalTimeoutMs > 0 {
		merged.GlobalTimeoutMs = p.GlobalTimeoutMs
	}
	if p.MergeMode != "" {
		merged.MergeMode = p.MergeMode
	}
	if p.Dedup != "" {
		merged.Dedup = p.Dedup
	}
	if p.DedupThreshold > 0 {
		merged.DedupThreshold = p.DedupThreshold
	}
	merged.Add = p.Add
	merged.Exclude = p.Exclude
	merged.Extends = ""
	return applyEdits(merged), nil
}

func applyEdits(p Profile) Profile {
	if len(p.Add) > 0 {
		p.Sources = append(append([]SourceSpec{}, p.Sources...), p.Add...)
		p.Add = nil
	}
	if len(p.Exclude) > 0 {
		excluded := map[string]bool{}
		for _, name := range p.Exclude {
			excluded[name] = true
		}
		kept := make([]SourceSpec, 0, len(p.Sources))
		for _, src := range p.Sources {
			if !excluded[src.Connector] {
				kept = append(kept, src)
			}
		}
		p.Sources = kept
		p.Exclude = nil
	}
	return p
}

// Names lists the available profiles, sorted.
func (s *ProfileStore) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AdHoc builds a throwaway profile from an explicit connector list.
func AdHoc(connectors []string) Profile {
	sources := make([]SourceSpec, 0, len(connectors))
	for _, name := range connectors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sources = append(sources, SourceSpec{Connector: name})
	}
	return Profile{Name: "ad-hoc", Sources: sources}
}
