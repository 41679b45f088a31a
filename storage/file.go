package storage

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// File persists each key as one file under dir. Writes go through a
// temp file + rename so a crash never leaves a half-written value.
type File struct {
	mu  sync.Mutex
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	return &File{dir: dir}, nil
}

// Keys may contain characters the filesystem dislikes; encode them.
func (s *File) path(key string) string {
	return filepath.Join(s.dir, base64.URLEncoding.EncodeToString([]byte(key)))
}

func (s *File) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read %s", key)
	}
	return string(raw), true, nil
}

func (s *File) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.path(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	if err := os.Rename(tmp, p); err != nil {
		return errors.Wrapf(err, "commit %s", key)
	}
	return nil
}

func (s *File) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", key)
	}
	return nil
}
