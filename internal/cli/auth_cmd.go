package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rzn-labs/datasourcer/auth"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

func cmdAuth(ctx context.Context, args []string) int {
	_ = ctx
	if len(args) < 1 {
		return fail("usage: auth set|delete|list")
	}
	store := auth.NewFileStore("")

	switch strings.TrimSpace(args[0]) {
	case "set":
		return authSet(store, args[1:])
	case "delete":
		return authDelete(store, args[1:])
	case "list":
		return authList(store)
	default:
		return fail("unknown auth subcommand %q", args[0])
	}
}

func authSet(store *auth.FileStore, args []string) int {
	if len(args) < 2 {
		return fail("usage: auth set <provider> key=value [key=value...]")
	}
	provider := registry.Normalize(args[0])
	details := types.AuthDetails{}
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fail("credential %q is not of the form key=value", pair)
		}
		details[strings.TrimSpace(key)] = value
	}
	if err := store.Save(provider, details); err != nil {
		return fail("failed to save credentials: %v", err)
	}
	fmt.Printf("saved %d credential(s) for %s in %s\n", len(details), provider, store.Path())
	return 0
}

func authDelete(store *auth.FileStore, args []string) int {
	if len(args) < 1 {
		return fail("usage: auth delete <provider>")
	}
	provider := registry.Normalize(args[0])
	if err := store.Delete(provider); err != nil {
		return fail("failed to delete credentials: %v", err)
	}
	fmt.Printf("deleted credentials for %s\n", provider)
	return 0
}

func authList(store *auth.FileStore) int {
	providers := store.Providers()
	if len(providers) == 0 {
		fmt.Println("no stored credentials")
		return 0
	}
	for _, provider := range providers {
		details, _ := store.Load(provider)
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		fmt.Printf("%-14s %s\n", provider, strings.Join(sorted(keys), ", "))
	}
	return 0
}
