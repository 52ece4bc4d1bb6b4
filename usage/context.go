package usage

import "context"

type runIDKey struct{}

// WithRunID scopes an ambient run correlation id to the context. Set
// once by the outermost caller of a logical user action; read by the
// metering decorator when no explicit run id travels with the call.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext reads the ambient run id, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}
