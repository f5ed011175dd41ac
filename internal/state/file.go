package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the whole key space in a single JSON file under the
// state dir. Writes go to a temp file first and are renamed into place
// so a crash never leaves a half-written session behind.
type FileStore struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &FileStore{
		path: filepath.Join(dir, "session.json"),
		m:    make(map[string]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}

	if len(b) == 0 {
		return nil
	}

	if err := json.Unmarshal(b, &s.m); err != nil {
		// a corrupt session file is equivalent to being logged out
		s.m = make(map[string]string)
	}

	return nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	s.mu.Unlock()

	return v, ok && v != ""
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value
	return s.flush()
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.m, k)
	}
	return s.flush()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]string)
	return s.flush()
}

func (s *FileStore) flush() error {
	b, err := json.MarshalIndent(s.m, "", "  ")

	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return os.Rename(tmp, s.path)
}
