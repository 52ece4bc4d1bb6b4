package cli

import (
	"sort"
	"strconv"
	"strings"
)

type cliOptions struct {
	connectors []string
	profile    string
	limit      int
	argsJSON   string
	runID      string
	runs       bool
	totals     bool
	tools      bool
	connector  string
	tool       string
	model      string
}

func parseArgs(args []string) (cliOptions, []string) {
	opts := cliOptions{}
	positional := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--connectors="):
			opts.connectors = splitCSV(strings.TrimPrefix(arg, "--connectors="))
		case strings.HasPrefix(arg, "--profile="):
			opts.profile = strings.TrimSpace(strings.TrimPrefix(arg, "--profile="))
		case strings.HasPrefix(arg, "--limit="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil {
				opts.limit = n
			}
		case strings.HasPrefix(arg, "--args="):
			opts.argsJSON = strings.TrimPrefix(arg, "--args=")
		case strings.HasPrefix(arg, "--run-id="):
			opts.runID = strings.TrimSpace(strings.TrimPrefix(arg, "--run-id="))
		case arg == "--runs":
			opts.runs = true
		case arg == "--totals":
			opts.totals = true
		case arg == "--tools":
			opts.tools = true
		case strings.HasPrefix(arg, "--connector="):
			opts.connector = strings.TrimSpace(strings.TrimPrefix(arg, "--connector="))
		case strings.HasPrefix(arg, "--tool="):
			opts.tool = strings.TrimSpace(strings.TrimPrefix(arg, "--tool="))
		case strings.HasPrefix(arg, "--model="):
			opts.model = strings.TrimSpace(strings.TrimPrefix(arg, "--model="))
		default:
			positional = append(positional, arg)
		}
	}
	return opts, positional
}

func normalizeInput(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) == "--" {
		args = args[1:]
	}
	return strings.TrimSpace(strings.Join(args, " "))
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sorted(values []string) []string {
	sort.Strings(values)
	return values
}
