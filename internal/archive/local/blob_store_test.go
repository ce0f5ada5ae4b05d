package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranktrakr/ranktrakr/internal/archive/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingBaseDir", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "archive")
		_, err := local.New(local.Config{BaseDir: base})
		require.NoError(t, err)
		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestPutWritesPayload(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := local.New(local.Config{BaseDir: base})
	require.NoError(t, err)

	payload := []byte(`{"status_code":20000}`)
	uri, err := store.Put(context.Background(), "serp/2025-03-14/tax-lawyer.json", "application/json", payload)
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(base, "serp/2025-03-14/tax-lawyer.json"), uri)

	written, err := os.ReadFile(filepath.Join(base, "serp", "2025-03-14", "tax-lawyer.json"))
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestPutRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.json", "application/json", []byte("{}"))
	assert.Error(t, err)

	_, err = store.Put(context.Background(), "", "application/json", []byte("{}"))
	assert.Error(t, err)
}
