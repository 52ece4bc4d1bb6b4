// Package registry builds and owns the set of enabled connectors.
// Connector packages register a builder in init; the registry
// constructs one shared, metered handle per enabled connector and
// injects persisted credentials.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rzn-labs/datasourcer/auth"
	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/usage"
)

// Builder constructs a fresh connector instance with defaults.
type Builder func() connector.Connector

type builderEntry struct {
	description string
	build       Builder
}

var (
	regMu    sync.RWMutex
	builders = map[string]builderEntry{}
)

// Register makes a connector available for construction. Called from
// connector package init functions.
func Register(name, description string, build Builder) error {
	name = Normalize(name)
	if name == "" {
		return fmt.Errorf("connector name is required")
	}
	if build == nil {
		return fmt.Errorf("connector builder is required")
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[name]; exists {
		return fmt.Errorf("connector %q already registered", name)
	}
	builders[name] = builderEntry{description: strings.TrimSpace(description), build: build}
	return nil
}

func MustRegister(name, description string, build Builder) {
	if err := Register(name, description, build); err != nil {
		panic(err)
	}
}

// RegisteredNames lists every registered connector, sorted.
func RegisteredNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(builders))
	for n := range builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Normalize canonicalizes a connector or provider name: lowercase,
// hyphens instead of underscores.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

// ProviderInfo is one row of ListProviders.
type ProviderInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Options configures registry construction.
type Options struct {
	// Enabled selects connectors by name. Empty enables everything
	// registered.
	Enabled []string

	// Credentials is consulted for each connector's provider and
	// aliases. Nil skips injection.
	Credentials auth.Store

	// Usage enables the metering decorator when non-nil.
	Usage *usage.Manager
}

// Registry owns one shared handle per enabled connector for the
// process lifetime.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]connector.Connector
	infos     []ProviderInfo
}

// New builds the enabled set. Unknown names in Enabled are an error;
// credential injection failures are not (a connector may not need
// credentials).
func New(opts Options) (*Registry, error) {
	names := opts.Enabled
	if len(names) == 0 {
		names = RegisteredNames()
	}

	r := &Registry{providers: make(map[string]connector.Connector, len(names))}
	for _, rawName := range names {
		name := Normalize(rawName)
		regMu.RLock()
		entry, ok := builders[name]
		regMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown connector %q", rawName)
		}

		raw := entry.build()
		if raw == nil {
			return nil, fmt.Errorf("connector %q builder returned nil", name)
		}

		var c connector.Connector = connector.NewHandle(raw)
		if opts.Usage != nil {
			c = connector.NewMetered(c, opts.Usage)
		}

		injectCredentials(c, name, opts.Credentials)

		r.providers[name] = c
		r.infos = append(r.infos, ProviderInfo{Name: name, Description: entry.description})
	}

	sort.Slice(r.infos, func(i, j int) bool { return r.infos[i].Name < r.infos[j].Name })
	return r, nil
}

// injectCredentials tries the store under the connector's provider
// and its own name, then environment fallbacks, applying the first
// match. Errors are ignored.
func injectCredentials(c connector.Connector, name string, store auth.Store) {
	aliases := []string{Normalize(c.CredentialProvider()), name}
	if store != nil {
		for _, alias := range aliases {
			if alias == "" {
				continue
			}
			if details, ok := store.Load(alias); ok {
				_ = c.SetAuthDetails(details)
				return
			}
		}
	}
	for _, alias := range aliases {
		if details, ok := auth.EnvFallback(alias); ok {
			_ = c.SetAuthDetails(details)
			return
		}
	}
}

// ListProviders returns the enabled connectors, sorted by name.
func (r *Registry) ListProviders() []ProviderInfo {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ProviderInfo(nil), r.infos...)
}

// GetProvider returns the shared handle for a connector.
func (r *Registry) GetProvider(name string) (connector.Connector, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.providers[Normalize(name)]
	return c, ok
}
