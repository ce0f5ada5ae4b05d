package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte(`{"status_code":20000}`)

	uri, err := store.Put(context.Background(), "serp/2025-03-14/kw.json", "application/json", payload)
	require.NoError(t, err)
	assert.Equal(t, "memory://serp/2025-03-14/kw.json", uri)

	// Mutating the caller's slice must not affect the stored copy.
	payload[0] = 'X'
	stored, ok := store.Get("serp/2025-03-14/kw.json")
	require.True(t, ok)
	assert.Equal(t, byte('{'), stored[0])
	assert.Equal(t, 1, store.Len())
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, ok := store.Get("absent")
	assert.False(t, ok)
}
