package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore writes artifacts to a local directory served by the HTTP server
// under /storage.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	name := filepath.Base(key)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return "/storage/" + name, nil
}

func (s *FSStore) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact %s: %w", key, err)
	}
	return nil
}
