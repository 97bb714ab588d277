package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSStoreSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "package_123.jpg", []byte("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "/storage/package_123.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "package_123.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg bytes"), data)

	require.NoError(t, s.Remove(ctx, "package_123.jpg"))
	_, err = os.Stat(filepath.Join(dir, "package_123.jpg"))
	require.True(t, os.IsNotExist(err))
}

func TestFSStoreRemoveMissingIsNoError(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), "never_existed.jpg"))
}

func TestFSStoreSaveStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "../escape.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "/storage/escape.jpg", url)

	_, err = os.Stat(filepath.Join(dir, "escape.jpg"))
	require.NoError(t, err)
}
