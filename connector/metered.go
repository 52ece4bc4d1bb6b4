package connector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rzn-labs/datasourcer/types"
	"github.com/rzn-labs/datasourcer/usage"
)

// Metered wraps a connector and records one usage event per tool
// call, on both the success and the error path. Every other method
// delegates untouched. Timing covers the full inner call including
// any handle locking, so it wraps the Handle, not the raw connector.
type Metered struct {
	inner  Connector
	usage  *usage.Manager
	logger *slog.Logger

	schemaMu sync.Mutex
	schemas  map[string]*gojsonschema.Schema
}

func NewMetered(inner Connector, manager *usage.Manager) *Metered {
	return &Metered{
		inner:  inner,
		usage:  manager,
		logger: slog.Default(),
	}
}

func (m *Metered) Name() string                     { return m.inner.Name() }
func (m *Metered) Description() string              { return m.inner.Description() }
func (m *Metered) Capabilities() types.Capabilities { return m.inner.Capabilities() }
func (m *Metered) ConfigSchema() types.ConfigSchema { return m.inner.ConfigSchema() }
func (m *Metered) AuthDetails() types.AuthDetails   { return m.inner.AuthDetails() }
func (m *Metered) CredentialProvider() string       { return m.inner.CredentialProvider() }

func (m *Metered) Initialize(ctx context.Context) (types.InitializeResult, error) {
	return m.inner.Initialize(ctx)
}

func (m *Metered) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	return m.inner.ListTools(ctx, cursor)
}

func (m *Metered) ListResources(ctx context.Context, cursor string) (types.ListResourcesResult, error) {
	return m.inner.ListResources(ctx, cursor)
}

func (m *Metered) ReadResource(ctx context.Context, uri string) (types.ReadResourceResult, error) {
	return m.inner.ReadResource(ctx, uri)
}

func (m *Metered) ListPrompts(ctx context.Context, cursor string) (types.ListPromptsResult, error) {
	return m.inner.ListPrompts(ctx, cursor)
}

func (m *Metered) GetPrompt(ctx context.Context, name string, arguments map[string]string) (types.GetPromptResult, error) {
	return m.inner.GetPrompt(ctx, name, arguments)
}

func (m *Metered) SetAuthDetails(details types.AuthDetails) error {
	return m.inner.SetAuthDetails(details)
}

func (m *Metered) TestAuth(ctx context.Context) error {
	return m.inner.TestAuth(ctx)
}

func (m *Metered) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	args, meta := splitMeta(arguments)

	runID := meta["run_id"]
	if runID == "" {
		if ambient, ok := usage.RunIDFromContext(ctx); ok {
			runID = ambient
		} else {
			runID = usage.NewRunID()
		}
	}
	requestID := meta["request_id"]
	if requestID == "" {
		requestID = usage.NewRequestID()
	}

	model, _ := args["model"].(string)

	if err := m.validateArguments(ctx, name, args); err != nil {
		return types.CallToolResult{}, err
	}

	start := time.Now()
	result, err := m.inner.CallTool(ctx, name, args)
	elapsed := time.Since(start)

	info := usage.CallInfo{
		Connector: m.inner.Name(),
		Tool:      name,
		Provider:  m.inner.CredentialProvider(),
		RunID:     runID,
		RequestID: requestID,
		KeyID:     meta["key_id"],
		Duration:  elapsed,
		Model:     model,
	}

	if err != nil {
		info.Status = usage.StatusError
		event, _ := m.usage.EstimateEvent(info)
		if recErr := m.usage.Record(ctx, event); recErr != nil {
			m.logger.Warn("failed to record usage event",
				"connector", info.Connector, "tool", name, "error", recErr)
		}
		return types.CallToolResult{}, err
	}

	info.Status = usage.StatusOK
	info.Structured = result.StructuredContent
	if obj, ok := result.StructuredContent.(map[string]any); ok {
		if reported, ok := obj["model"].(string); ok && reported != "" {
			info.Model = reported
		}
	}

	event, callMeta := m.usage.EstimateEvent(info)
	if recErr := m.usage.Record(ctx, event); recErr != nil {
		m.logger.Warn("failed to record usage event",
			"connector", info.Connector, "tool", name, "error", recErr)
	}

	if result.Meta == nil {
		result.Meta = map[string]any{}
	}
	for k, v := range callMeta {
		result.Meta[k] = v
	}
	return result, nil
}

// splitMeta removes the optional _meta envelope from arguments without
// mutating the caller's map.
func splitMeta(arguments map[string]any) (map[string]any, map[string]string) {
	meta := map[string]string{}
	raw, hasMeta := arguments["_meta"].(map[string]any)
	if !hasMeta {
		return arguments, meta
	}

	args := make(map[string]any, len(arguments))
	for k, v := range arguments {
		if k == "_meta" {
			continue
		}
		args[k] = v
	}
	for _, key := range []string{"run_id", "request_id", "key_id"} {
		if v, ok := raw[key].(string); ok {
			meta[key] = v
		}
	}
	return args, meta
}

// validateArguments checks args against the tool's input schema when
// the schema compiles. Compile failures skip validation; the connector
// still applies its own checks.
func (m *Metered) validateArguments(ctx context.Context, name string, args map[string]any) error {
	schema := m.schemaFor(ctx, name)
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return InvalidParams("arguments for %q: %s", name, errs[0].String())
		}
		return InvalidParams("arguments for %q do not match the tool schema", name)
	}
	return nil
}

func (m *Metered) schemaFor(ctx context.Context, name string) *gojsonschema.Schema {
	m.schemaMu.Lock()
	defer m.schemaMu.Unlock()
	if m.schemas == nil {
		m.schemas = map[string]*gojsonschema.Schema{}
		listed, err := m.inner.ListTools(ctx, "")
		if err != nil {
			return nil
		}
		for _, tool := range listed.Tools {
			if tool.InputSchema == nil {
				continue
			}
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
			if err != nil {
				continue
			}
			m.schemas[tool.Name] = compiled
		}
	}
	return m.schemas[name]
}

var _ Connector = (*Metered)(nil)
