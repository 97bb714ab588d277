package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func drivers(t *testing.T) map[string]Store {
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestGetMissingCollection(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope")
			require.ErrorIs(t, err, ErrCollectionNotFound)
		})
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := []byte(`{"items":[1,2,3]}`)

			require.NoError(t, s.Put(ctx, "things", doc))

			got, err := s.Get(ctx, "things")
			require.NoError(t, err)
			require.JSONEq(t, string(doc), string(got))
		})
	}
}

func TestUpdateSeesNilForNewCollection(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Update(context.Background(), "fresh", func(current []byte) ([]byte, error) {
				require.Nil(t, current)
				return []byte(`{"n":1}`), nil
			})
			require.NoError(t, err)
		})
	}
}

func TestUpdateErrorAbortsWrite(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "c", []byte(`{"n":1}`)))

			wantErr := context.Canceled
			err := s.Update(ctx, "c", func([]byte) ([]byte, error) {
				return nil, wantErr
			})
			require.ErrorIs(t, err, wantErr)

			got, err := s.Get(ctx, "c")
			require.NoError(t, err)
			require.JSONEq(t, `{"n":1}`, string(got))
		})
	}
}

// Concurrent counter increments must not lose updates.
func TestUpdateIsAtomic(t *testing.T) {
	const workers = 32

	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "counter", []byte(`{"n":0}`)))

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := s.Update(ctx, "counter", func(current []byte) ([]byte, error) {
						var doc struct {
							N int `json:"n"`
						}
						if err := json.Unmarshal(current, &doc); err != nil {
							return nil, err
						}
						doc.N++
						return json.Marshal(doc)
					})
					require.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, "counter")
			require.NoError(t, err)

			var doc struct {
				N int `json:"n"`
			}
			require.NoError(t, json.Unmarshal(got, &doc))
			require.Equal(t, workers, doc.N)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "packages", []byte(`{"lastId":7}`)))
	require.NoError(t, first.Close())

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, "packages")
	require.NoError(t, err)
	require.JSONEq(t, `{"lastId":7}`, string(got))
}
