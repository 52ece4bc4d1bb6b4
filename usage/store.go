package usage

import (
	"context"
	"sort"
	"sync"
)

// Store is the append-only usage log. Record must be crash-safe per
// event and serialize concurrent appenders within one process.
type Store interface {
	Record(ctx context.Context, event Event) error
	LoadAll(ctx context.Context) ([]Event, error)
	Close() error
}

// MemoryStore keeps events in memory. Used in tests and as a fallback
// when no state directory is available.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, event Event) error {
	_ = ctx
	if s == nil {
		return nil
	}
	event.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]Event, error) {
	_ = ctx
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
