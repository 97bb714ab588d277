package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON file per collection under a base directory.
// Writes go to a temp file first and are renamed into place, so a crashed
// write never leaves a truncated document behind.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) lock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) Get(_ context.Context, collection string) ([]byte, error) {
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	return s.read(collection)
}

func (s *FileStore) read(collection string) ([]byte, error) {
	doc, err := os.ReadFile(s.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return doc, nil
}

func (s *FileStore) Put(_ context.Context, collection string, doc []byte) error {
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	return s.write(collection, doc)
}

func (s *FileStore) write(collection string, doc []byte) error {
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", collection, err)
	}

	if err := os.Rename(tmpName, s.path(collection)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", collection, err)
	}
	return nil
}

func (s *FileStore) Update(_ context.Context, collection string, fn UpdateFunc) error {
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	current, err := s.read(collection)
	if err != nil && err != ErrCollectionNotFound {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.write(collection, next)
}

func (s *FileStore) Close() error { return nil }
