package kvstore

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	mem := NewMemoryStore()
	sqlMem, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	sqlFile, err := Open(BackendSQLite, filepath.Join(t.TempDir(), "nested", "kv.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlMem.Close()
		_ = sqlFile.Close()
	})
	return map[string]Store{"memory": mem, "sqlite-memory": sqlMem, "sqlite-file": sqlFile}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "settings")
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrNotFound))

			require.NoError(t, s.Put(ctx, "settings", []byte(`{"mode":"auto"}`)))
			got, err := s.Get(ctx, "settings")
			require.NoError(t, err)
			assert.JSONEq(t, `{"mode":"auto"}`, string(got))

			require.NoError(t, s.Put(ctx, "settings", []byte(`{"mode":"off"}`)))
			got, err = s.Get(ctx, "settings")
			require.NoError(t, err)
			assert.JSONEq(t, `{"mode":"off"}`, string(got))
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(BackendNATS, "", nil)
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfig, ce.Category())

	_, err = Open("etcd", "", nil)
	require.Error(t, err)
}
