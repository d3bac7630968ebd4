package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valkey-io/valkey-go"
)

// Store persists the last used scene index per theme. Implementations keep
// the whole mapping as a single JSON document.
type Store interface {
	LastIndex(ctx context.Context, themeID string) (int, bool, error)
	SetLastIndex(ctx context.Context, themeID string, idx int) error
}

type MemoryStore struct {
	mu sync.Mutex
	m  map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]int)}
}

func (s *MemoryStore) LastIndex(_ context.Context, themeID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.m[themeID]
	return idx, ok, nil
}

func (s *MemoryStore) SetLastIndex(_ context.Context, themeID string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[themeID] = idx
	return nil
}

// FileStore reads the mapping once when opened and rewrites the file after
// every update.
type FileStore struct {
	path string

	mu sync.Mutex
	m  map[string]int
}

func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, m: make(map[string]int)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read scene store: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.m); err != nil {
			return nil, fmt.Errorf("decode scene store %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *FileStore) LastIndex(_ context.Context, themeID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.m[themeID]
	return idx, ok, nil
}

func (s *FileStore) SetLastIndex(_ context.Context, themeID string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[themeID] = idx
	raw, err := json.Marshal(s.m)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, raw)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".last_scenes-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

const DefaultValkeyKey = "photobooth:last_scenes"

// ValkeyStore keeps the mapping under one key. Updates are read-modify-write
// without locking; one kiosk writes to one key.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

func NewValkeyStore(client valkey.Client, key string) *ValkeyStore {
	if key == "" {
		key = DefaultValkeyKey
	}
	return &ValkeyStore{client: client, key: key}
}

func (s *ValkeyStore) load(ctx context.Context) (map[string]int, error) {
	m := make(map[string]int)
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", s.key, err)
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return m, nil
}

func (s *ValkeyStore) LastIndex(ctx context.Context, themeID string) (int, bool, error) {
	m, err := s.load(ctx)
	if err != nil {
		return 0, false, err
	}
	idx, ok := m[themeID]
	return idx, ok, nil
}

func (s *ValkeyStore) SetLastIndex(ctx context.Context, themeID string, idx int) error {
	m, err := s.load(ctx)
	if err != nil {
		return err
	}
	m[themeID] = idx

	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.key).Value(string(raw)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", s.key, err)
	}
	return nil
}
