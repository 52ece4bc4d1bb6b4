package cli

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"github.com/rzn-labs/datasourcer/auth"
	"github.com/rzn-labs/datasourcer/internal/config"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/usage"
	usagefactory "github.com/rzn-labs/datasourcer/usage/factory"
	usageotel "github.com/rzn-labs/datasourcer/usage/otel"
)

type runtimeComponents struct {
	registry *registry.Registry
	manager  *usage.Manager
	store    usage.Store
	auth     *auth.FileStore
}

// buildRuntime wires the credential store, usage backend, pricing
// catalog, and connector registry for one CLI invocation.
func buildRuntime(ctx context.Context) (*runtimeComponents, func(), error) {
	authStore := auth.NewFileStore("")

	store, err := usagefactory.FromEnv(ctx)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := usage.LoadWithOverlay(config.PricingOverlayPath())
	if err != nil {
		closeStore(store)
		return nil, nil, err
	}

	manager := usage.NewManager(store, catalog)
	if config.TraceUsage() {
		manager.AddSink(usageotel.NewSink(otel.GetTracerProvider()))
	}
	reg, err := registry.New(registry.Options{
		Enabled:     config.EnabledConnectors(),
		Credentials: authStore,
		Usage:       manager,
	})
	if err != nil {
		closeStore(store)
		return nil, nil, err
	}

	components := &runtimeComponents{registry: reg, manager: manager, store: store, auth: authStore}
	return components, func() { closeStore(store) }, nil
}

func closeStore(store usage.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("usage store close failed: %v", err)
	}
}

// withRunID wires an explicit or fresh run id into the context so
// every tool call of the invocation meters under one run.
func withRunID(ctx context.Context, explicit string) (context.Context, string) {
	runID := explicit
	if runID == "" {
		runID = usage.NewRunID()
	}
	return usage.WithRunID(ctx, runID), runID
}
