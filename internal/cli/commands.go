package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rzn-labs/datasourcer/federated"
	"github.com/rzn-labs/datasourcer/internal/config"
	"github.com/rzn-labs/datasourcer/mcp"
	"github.com/rzn-labs/datasourcer/resolver"
	"github.com/rzn-labs/datasourcer/types"
	"github.com/rzn-labs/datasourcer/usage"
)

func cmdList(ctx context.Context, args []string) int {
	opts, _ := parseArgs(args)

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	if !opts.tools {
		for _, info := range components.registry.ListProviders() {
			fmt.Printf("%-14s %s\n", info.Name, info.Description)
		}
		return 0
	}

	tools, err := components.registry.ListAllTools(ctx)
	if err != nil {
		return fail("failed to list tools: %v", err)
	}
	for _, tool := range tools {
		fmt.Printf("%-32s %s\n", tool.Name, tool.Description)
	}
	return 0
}

func cmdCall(ctx context.Context, args []string) int {
	opts, positional := parseArgs(args)
	if len(positional) < 1 {
		return fail("usage: call <connector.tool> [--args='{...}']")
	}
	qualified := strings.TrimSpace(positional[0])

	arguments := map[string]any{}
	if opts.argsJSON != "" {
		if err := json.Unmarshal([]byte(opts.argsJSON), &arguments); err != nil {
			return fail("invalid --args: %v", err)
		}
	}

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	ctx, _ = withRunID(ctx, opts.runID)
	result, err := components.registry.CallTool(ctx, qualified, arguments)
	if err != nil {
		return fail("call failed: %v", err)
	}
	return printResult(result)
}

func cmdGet(ctx context.Context, args []string) int {
	opts, positional := parseArgs(args)
	input := normalizeInput(positional)
	if input == "" {
		return fail("usage: get <url-or-id>")
	}

	resolution, ok := resolver.Resolve(input)
	if !ok {
		return fail("no connector recognizes %q", input)
	}

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	ctx, _ = withRunID(ctx, opts.runID)
	provider, found := components.registry.GetProvider(resolution.Connector)
	if !found {
		return fail("connector %q resolved for %q is not enabled", resolution.Connector, input)
	}
	result, err := provider.CallTool(ctx, resolution.Tool, resolution.Arguments)
	if err != nil {
		return fail("%s.%s failed: %v", resolution.Connector, resolution.Tool, err)
	}
	return printResult(result)
}

func cmdSearch(ctx context.Context, args []string) int {
	opts, positional := parseArgs(args)
	query := normalizeInput(positional)
	if query == "" {
		return fail("usage: search <query> [--profile=research] [--connectors=a,b]")
	}

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	profile, err := pickProfile(opts)
	if err != nil {
		return fail("%v", err)
	}
	if opts.limit > 0 {
		for i := range profile.Sources {
			profile.Sources[i].Limit = opts.limit
		}
	}

	ctx, _ = withRunID(ctx, opts.runID)
	engine := federated.NewEngine(components.registry)
	result := engine.Search(ctx, query, profile)
	return printJSON(result)
}

func pickProfile(opts cliOptions) (federated.Profile, error) {
	if len(opts.connectors) > 0 {
		return federated.AdHoc(opts.connectors), nil
	}
	name := opts.profile
	if name == "" {
		name = "web"
	}
	store, err := federated.NewProfileStore(config.ProfilesPath())
	if err != nil {
		return federated.Profile{}, fmt.Errorf("failed to load search profiles: %w", err)
	}
	return store.Get(name)
}

func cmdUsage(ctx context.Context, args []string) int {
	opts, _ := parseArgs(args)

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	events, err := components.manager.LoadAll(ctx)
	if err != nil {
		return fail("failed to load usage log: %v", err)
	}

	if opts.totals || !opts.runs {
		totals := usage.SummarizeTotals(events)
		fmt.Printf("events: %d  errors: %d  requests: %d  cost: $%.4f\n",
			totals.Events, totals.Errors, totals.Requests, totals.CostUSD)
		for _, name := range sortedKeys(totals.ByConnector) {
			fmt.Printf("  %-14s %d\n", name, totals.ByConnector[name])
		}
	}
	if opts.runs {
		for _, run := range usage.SummarizeRuns(events) {
			fmt.Printf("%s  events=%d errors=%d requests=%d results=%d cost=$%.4f  %s\n",
				run.RunID, run.Events, run.Errors, run.Requests, run.Results, run.CostUSD,
				run.Started.Format("2006-01-02 15:04:05"))
		}
	}
	return 0
}

func cmdPricing(ctx context.Context, args []string) int {
	opts, _ := parseArgs(args)

	catalog, err := usage.LoadWithOverlay(config.PricingOverlayPath())
	if err != nil {
		return fail("failed to load pricing catalog: %v", err)
	}
	_ = ctx

	fmt.Printf("pricing version %s\n", catalog.Version())
	for _, entry := range catalog.Filter(opts.connector, opts.tool, opts.model) {
		line := fmt.Sprintf("%-28s %-12s %-24s", entry.Pattern, entry.Category, entry.Model.Kind)
		if entry.ModelPattern != "" {
			line += "  model=" + entry.ModelPattern
		}
		fmt.Println(line)
	}
	return 0
}

func cmdServe(ctx context.Context, args []string) int {
	_, _ = parseArgs(args)

	components, cleanup, err := buildRuntime(ctx)
	if err != nil {
		return fail("failed to build runtime: %v", err)
	}
	defer cleanup()

	server := mcp.NewServer(components.registry)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fail("server stopped: %v", err)
	}
	return 0
}

func printResult(result types.CallToolResult) int {
	if result.StructuredContent != nil {
		return printJSON(result.StructuredContent)
	}
	for _, part := range result.Content {
		fmt.Println(part.Text)
	}
	if result.IsError {
		return 1
	}
	return 0
}

func printJSON(v any) int {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fail("failed to encode output: %v", err)
	}
	fmt.Println(string(enc))
	return 0
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return 1
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return sorted(out)
}
