// Package redis keeps the usage log in a Redis list, for installs
// that aggregate usage from several machines into one place.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rzn-labs/datasourcer/usage"
)

const (
	defaultPrefix = "rzn"
	defaultTTL    = 30 * 24 * time.Hour
)

type Store struct {
	client   *goredis.Client
	prefix   string
	ttl      time.Duration
	addr     string
	db       int
	password string
}

type Option func(*Store)

func WithPassword(password string) Option {
	return func(s *Store) {
		s.password = password
	}
}

func WithDB(db int) Option {
	return func(s *Store) {
		s.db = db
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &Store{
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}

	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return s, nil
}

func (s *Store) Record(ctx context.Context, event usage.Event) error {
	if s == nil || s.client == nil {
		return nil
	}
	event.Normalize()
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal usage event: %w", err)
	}

	key := s.eventsKey()
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, string(raw))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append usage event in redis: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]usage.Event, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	values, err := s.client.LRange(ctx, s.eventsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load usage events from redis: %w", err)
	}

	out := make([]usage.Event, 0, len(values))
	for _, raw := range values {
		var event usage.Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) eventsKey() string {
	return fmt.Sprintf("%s:usage:events", s.prefix)
}

var _ usage.Store = (*Store)(nil)
