package attempt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one draft file per exam under <stateDir>/attempts/.
type FileStore struct {
	dir string
}

func NewFileStore(stateDir string) (*FileStore, error) {
	dir := filepath.Join(stateDir, "attempts")

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create attempts dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(examID string) string {
	// exam ids come from the backend; keep the filename tame
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, examID)

	return filepath.Join(s.dir, safe+".json")
}

func (s *FileStore) Load(examID string) (Draft, error) {
	b, err := os.ReadFile(s.path(examID))

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Draft{}, ErrNotFound
		}
		return Draft{}, fmt.Errorf("read draft: %w", err)
	}

	return DecodeDraft(b)
}

func (s *FileStore) Save(d Draft) error {
	b, err := EncodeDraft(d)

	if err != nil {
		return err
	}

	p := s.path(d.ExamID)
	tmp := p + ".tmp"

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}

	return os.Rename(tmp, p)
}

func (s *FileStore) Delete(examID string) error {
	err := os.Remove(s.path(examID))

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// List returns the exam ids with a stored draft.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)

	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	var ids []string

	for _, e := range entries {
		name := e.Name()

		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
