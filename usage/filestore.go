package usage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore appends newline-delimited JSON events to a single log
// file. Each Record writes one whole line and flushes, so a crash
// loses at most the event being written. Cross-process appenders
// interleave at line granularity.
type FileStore struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("usage log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create usage log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage log: %w", err)
	}
	return &FileStore{path: path, file: f}, nil
}

func (s *FileStore) Record(ctx context.Context, event Event) error {
	_ = ctx
	if s == nil || s.file == nil {
		return nil
	}
	event.Normalize()
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode usage event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to flush usage log: %w", err)
	}
	return nil
}

// LoadAll reads the whole log. Corrupt lines (torn writes from a
// crash) are skipped rather than failing the load.
func (s *FileStore) LoadAll(ctx context.Context) ([]Event, error) {
	_ = ctx
	if s == nil {
		return nil, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	out := make([]Event, 0, 64)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage log: %w", err)
	}
	return out, nil
}

func (s *FileStore) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

var _ Store = (*FileStore)(nil)
