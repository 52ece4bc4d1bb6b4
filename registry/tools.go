package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/types"
)

// ListAllTools flattens every provider's catalog under namespaced
// "connector.tool" names, in provider order.
func (r *Registry) ListAllTools(ctx context.Context) ([]types.Tool, error) {
	if r == nil {
		return nil, nil
	}
	out := make([]types.Tool, 0, 32)
	for _, info := range r.ListProviders() {
		c, ok := r.GetProvider(info.Name)
		if !ok {
			continue
		}
		listed, err := c.ListTools(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list tools for %s: %w", info.Name, err)
		}
		for _, tool := range listed.Tools {
			tool.Name = info.Name + "." + tool.Name
			out = append(out, tool)
		}
	}
	return out, nil
}

// CallTool routes a namespaced "connector.tool" invocation to the
// owning provider.
func (r *Registry) CallTool(ctx context.Context, qualified string, arguments map[string]any) (types.CallToolResult, error) {
	providerName, toolName, ok := SplitToolName(qualified)
	if !ok {
		return types.CallToolResult{}, connector.InvalidParams("tool name %q is not of the form connector.tool", qualified)
	}
	c, found := r.GetProvider(providerName)
	if !found {
		return types.CallToolResult{}, connector.NotFound("unknown connector %q", providerName)
	}
	return c.CallTool(ctx, toolName, arguments)
}

// SplitToolName splits a namespaced tool name at the first dot.
func SplitToolName(qualified string) (string, string, bool) {
	i := strings.Index(qualified, ".")
	if i <= 0 || i == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:i], qualified[i+1:], true
}
