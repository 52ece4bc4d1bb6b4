package usage

import "context"

// Sink consumes recorded usage events, e.g. to bridge them into a
// tracing backend. Sinks run after the store append and must not
// block the call path for long.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
