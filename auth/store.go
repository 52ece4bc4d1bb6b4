// Package auth persists per-provider credentials in a single JSON
// file under the user's configuration directory.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rzn-labs/datasourcer/internal/config"
	"github.com/rzn-labs/datasourcer/types"
)

// ErrUnavailable means the store cannot be reached at all.
var ErrUnavailable = errors.New("credential store unavailable")

// ErrPersist means a write failed; previously stored credentials are
// unchanged.
var ErrPersist = errors.New("credential store write failed")

// Store holds per-provider credential mappings. Load failures are
// treated as absent, never as errors.
type Store interface {
	Load(provider string) (types.AuthDetails, bool)
	Save(provider string, details types.AuthDetails) error
	Delete(provider string) error
	Providers() []string
}

// FileStore is the on-disk implementation. The file is a JSON object
// of provider to field map, written atomically with owner-only
// permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens a store at path. An empty path uses the default
// location under the user config dir.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = config.CredentialsPath()
	}
	return &FileStore{path: path}
}

func (s *FileStore) Load(provider string) (types.AuthDetails, bool) {
	if s == nil || provider == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.readAll()
	details, ok := all[provider]
	if !ok || len(details) == 0 {
		return nil, false
	}
	return details.Clone(), true
}

func (s *FileStore) Save(provider string, details types.AuthDetails) error {
	if s == nil {
		return ErrUnavailable
	}
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.readAll()
	all[provider] = details.Clone()
	return s.writeAll(all)
}

// Delete removes the whole provider record. Per-field removal is not
// supported; callers re-save a reduced map instead.
func (s *FileStore) Delete(provider string) error {
	if s == nil {
		return ErrUnavailable
	}
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.readAll()
	if _, ok := all[provider]; !ok {
		return nil
	}
	delete(all, provider)
	return s.writeAll(all)
}

func (s *FileStore) Providers() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.readAll()
	out := make([]string, 0, len(all))
	for p := range all {
		out = append(out, p)
	}
	return out
}

// readAll tolerates a missing or corrupt file and returns an empty
// map in that case.
func (s *FileStore) readAll() map[string]types.AuthDetails {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]types.AuthDetails{}
	}
	var all map[string]types.AuthDetails
	if err := json.Unmarshal(raw, &all); err != nil || all == nil {
		return map[string]types.AuthDetails{}
	}
	return all
}

// writeAll writes the whole file atomically: temp file in the same
// directory, fsync, rename. Mode is 0600 on the temp file so the
// final file never exists with wider permissions.
func (s *FileStore) writeAll(all map[string]types.AuthDetails) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	tmp, err := os.CreateTemp(dir, ".auth-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

var _ Store = (*FileStore)(nil)

// MemoryStore satisfies Store for tests.
type MemoryStore struct {
	mu  sync.Mutex
	all map[string]types.AuthDetails
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{all: map[string]types.AuthDetails{}}
}

func (s *MemoryStore) Load(provider string) (types.AuthDetails, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	details, ok := s.all[provider]
	if !ok || len(details) == 0 {
		return nil, false
	}
	return details.Clone(), true
}

func (s *MemoryStore) Save(provider string, details types.AuthDetails) error {
	if s == nil {
		return ErrUnavailable
	}
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all[provider] = details.Clone()
	return nil
}

func (s *MemoryStore) Delete(provider string) error {
	if s == nil {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.all, provider)
	return nil
}

func (s *MemoryStore) Providers() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.all))
	for p := range s.all {
		out = append(out, p)
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
