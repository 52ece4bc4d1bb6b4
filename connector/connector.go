// Package connector defines the contract every data source implements,
// plus the shared handle and metering decorator the registry wraps
// around each instance.
package connector

import (
	"context"
	"sync"

	"github.com/rzn-labs/datasourcer/types"
)

// ProtocolVersion is the tool-calling protocol revision advertised by
// Initialize.
const ProtocolVersion = "2024-11-05"

// Connector is the single capability set every data source implements.
// Implementations must not block the calling goroutine on CPU-heavy
// work; parsing and extraction go through the bounded CPU pool.
type Connector interface {
	Name() string
	Description() string
	Capabilities() types.Capabilities
	Initialize(ctx context.Context) (types.InitializeResult, error)

	ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error)

	ListResources(ctx context.Context, cursor string) (types.ListResourcesResult, error)
	ReadResource(ctx context.Context, uri string) (types.ReadResourceResult, error)
	ListPrompts(ctx context.Context, cursor string) (types.ListPromptsResult, error)
	GetPrompt(ctx context.Context, name string, arguments map[string]string) (types.GetPromptResult, error)

	ConfigSchema() types.ConfigSchema
	AuthDetails() types.AuthDetails
	SetAuthDetails(details types.AuthDetails) error
	TestAuth(ctx context.Context) error
	CredentialProvider() string
}

// Base supplies defaults for the optional parts of the contract so a
// connector only implements the surfaces it actually has. Embed by
// value and override as needed.
type Base struct {
	ConnectorName string
	Desc          string
	Provider      string
	Version       string

	mu   sync.RWMutex
	auth types.AuthDetails
}

func NewBase(name, description, provider string) Base {
	if provider == "" {
		provider = name
	}
	return Base{
		ConnectorName: name,
		Desc:          description,
		Provider:      provider,
		Version:       "0.1.0",
	}
}

func (b *Base) Name() string        { return b.ConnectorName }
func (b *Base) Description() string { return b.Desc }

func (b *Base) Capabilities() types.Capabilities {
	return types.Capabilities{Tools: true}
}

func (b *Base) Initialize(ctx context.Context) (types.InitializeResult, error) {
	_ = ctx
	return types.InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    b.Capabilities(),
		ServerInfo: types.Implementation{
			Name:    b.ConnectorName,
			Version: b.Version,
		},
	}, nil
}

func (b *Base) ListResources(ctx context.Context, cursor string) (types.ListResourcesResult, error) {
	_, _ = ctx, cursor
	return types.ListResourcesResult{Resources: []types.Resource{}}, nil
}

func (b *Base) ReadResource(ctx context.Context, uri string) (types.ReadResourceResult, error) {
	_ = ctx
	return types.ReadResourceResult{}, NotFound("resource %q not found", uri)
}

func (b *Base) ListPrompts(ctx context.Context, cursor string) (types.ListPromptsResult, error) {
	_, _ = ctx, cursor
	return types.ListPromptsResult{Prompts: []types.Prompt{}}, nil
}

func (b *Base) GetPrompt(ctx context.Context, name string, arguments map[string]string) (types.GetPromptResult, error) {
	_, _ = ctx, arguments
	return types.GetPromptResult{}, NotFound("prompt %q not found", name)
}

func (b *Base) ConfigSchema() types.ConfigSchema {
	return types.ConfigSchema{Fields: []types.Field{}}
}

func (b *Base) AuthDetails() types.AuthDetails {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auth.Clone()
}

func (b *Base) SetAuthDetails(details types.AuthDetails) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth = details.Clone()
	return nil
}

// AuthValue reads one field of the stored credentials.
func (b *Base) AuthValue(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auth[key]
}

func (b *Base) TestAuth(ctx context.Context) error {
	_ = ctx
	return nil
}

func (b *Base) CredentialProvider() string { return b.Provider }

// Handle serializes access to a shared connector. Connectors mutate
// in-memory auth state, so callers go through a per-handle exclusive
// lock instead of every implementation carrying its own locking.
type Handle struct {
	mu    sync.Mutex
	inner Connector
}

func NewHandle(inner Connector) *Handle {
	return &Handle{inner: inner}
}

func (h *Handle) Name() string        { return h.inner.Name() }
func (h *Handle) Description() string { return h.inner.Description() }

func (h *Handle) Capabilities() types.Capabilities {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Capabilities()
}

func (h *Handle) Initialize(ctx context.Context) (types.InitializeResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.Initialize(ctx)
}

func (h *Handle) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.ListTools(ctx, cursor)
}

func (h *Handle) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.CallTool(ctx, name, arguments)
}

func (h *Handle) ListResources(ctx context.Context, cursor string) (types.ListResourcesResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.ListResources(ctx, cursor)
}

func (h *Handle) ReadResource(ctx context.Context, uri string) (types.ReadResourceResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.ReadResource(ctx, uri)
}

func (h *Handle) ListPrompts(ctx context.Context, cursor string) (types.ListPromptsResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.ListPrompts(ctx, cursor)
}

func (h *Handle) GetPrompt(ctx context.Context, name string, arguments map[string]string) (types.GetPromptResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.GetPrompt(ctx, name, arguments)
}

func (h *Handle) ConfigSchema() types.ConfigSchema {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.ConfigSchema()
}

func (h *Handle) AuthDetails() types.AuthDetails {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.AuthDetails()
}

func (h *Handle) SetAuthDetails(details types.AuthDetails) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.SetAuthDetails(details)
}

func (h *Handle) TestAuth(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inner.TestAuth(ctx)
}

func (h *Handle) CredentialProvider() string { return h.inner.CredentialProvider() }

var _ Connector = (*Handle)(nil)
