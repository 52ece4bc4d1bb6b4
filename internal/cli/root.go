package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rzn-labs/datasourcer/federated"
	"github.com/rzn-labs/datasourcer/registry"
)

// Run dispatches one CLI invocation and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	switch strings.TrimSpace(args[0]) {
	case "list":
		return cmdList(ctx, args[1:])
	case "call":
		return cmdCall(ctx, args[1:])
	case "get":
		return cmdGet(ctx, args[1:])
	case "search":
		return cmdSearch(ctx, args[1:])
	case "usage":
		return cmdUsage(ctx, args[1:])
	case "pricing":
		return cmdPricing(ctx, args[1:])
	case "auth":
		return cmdAuth(ctx, args[1:])
	case "serve":
		return cmdServe(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Printf("unknown command %q\n\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println("rzn-datasourcer: unified data-access runtime")
	fmt.Println("Usage:")
	fmt.Println("  datasourcer list [--tools]")
	fmt.Println("  datasourcer call <connector.tool> [--args='{...}'] [--run-id=ID]")
	fmt.Println("  datasourcer get <url-or-id> [--run-id=ID]")
	fmt.Println("  datasourcer search <query> [--profile=research] [--connectors=a,b] [--limit=10] [--run-id=ID]")
	fmt.Println("  datasourcer usage [--runs|--totals]")
	fmt.Println("  datasourcer pricing [--connector=NAME] [--tool=NAME] [--model=NAME]")
	fmt.Println("  datasourcer auth set <provider> key=value [key=value...]")
	fmt.Println("  datasourcer auth delete <provider>")
	fmt.Println("  datasourcer auth list")
	fmt.Println("  datasourcer serve")
	fmt.Println()
	fmt.Printf("  available connectors: %s\n", strings.Join(registry.RegisteredNames(), ", "))
	fmt.Printf("  builtin search profiles: %s\n", strings.Join(builtinProfileNames(), ", "))
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  RZN_CONNECTORS          Connector allowlist (comma-separated)")
	fmt.Println("  RZN_USAGE_BACKEND       file|sqlite|redis|memory (default file)")
	fmt.Println("  RZN_STATE_DIR           Usage log directory")
	fmt.Println("  RZN_PRICING_OVERLAY     Pricing overlay JSON path")
	fmt.Println("  RZN_PROFILES            Search profile YAML path")
	fmt.Println("  RZN_TRACE_USAGE         Mirror usage events onto the OTel tracer (default false)")
}

func builtinProfileNames() []string {
	builtins := federated.Builtins()
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	return sorted(out)
}
