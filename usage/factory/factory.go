// Package factory selects a usage store backend from the environment.
package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rzn-labs/datasourcer/internal/config"
	"github.com/rzn-labs/datasourcer/usage"
	redisstore "github.com/rzn-labs/datasourcer/usage/redis"
	sqlitestore "github.com/rzn-labs/datasourcer/usage/sqlite"
)

func FromEnv(ctx context.Context) (usage.Store, error) {
	_ = ctx

	backend := strings.ToLower(strings.TrimSpace(getenv("RZN_USAGE_BACKEND", "file")))
	switch backend {
	case "file":
		path := getenv("RZN_USAGE_PATH", defaultLogPath())
		return usage.NewFileStore(path)

	case "sqlite":
		path := getenv("RZN_SQLITE_PATH", defaultSQLitePath())
		return sqlitestore.New(path)

	case "redis":
		return newRedisStoreFromEnv()

	case "memory":
		return usage.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported RZN_USAGE_BACKEND %q (use file, sqlite, redis, or memory)", backend)
	}
}

func newRedisStoreFromEnv() (usage.Store, error) {
	addr := getenv("RZN_REDIS_ADDR", "127.0.0.1:6379")
	password := strings.TrimSpace(os.Getenv("RZN_REDIS_PASSWORD"))
	db := getenvInt("RZN_REDIS_DB", 0)
	ttl := getenvDuration("RZN_REDIS_TTL", 30*24*time.Hour)

	opts := []redisstore.Option{
		redisstore.WithPassword(password),
		redisstore.WithDB(db),
		redisstore.WithTTL(ttl),
	}
	return redisstore.New(addr, opts...)
}

func defaultLogPath() string {
	return filepath.Join(config.StateDir(), "usage.ndjson")
}

func defaultSQLitePath() string {
	return filepath.Join(config.StateDir(), "usage.db")
}

func getenv(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
