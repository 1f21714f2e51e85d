package store

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_OpensOnce(t *testing.T) {
	dir := t.TempDir()
	h := NewHandle(filepath.Join(dir, "taskboard.db"), filepath.Join(dir, "notes"))

	assert.NoFileExists(t, filepath.Join(dir, "taskboard.db"))

	var wg sync.WaitGroup
	stores := make([]*SQLiteStore, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := h.Store()
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range stores[1:] {
		assert.Same(t, stores[0], s)
	}
	assert.True(t, stores[0].Durable())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestHandle_CloseBeforeUse(t *testing.T) {
	dir := t.TempDir()
	h := NewHandle(filepath.Join(dir, "taskboard.db"), filepath.Join(dir, "notes"))

	require.NoError(t, h.Close())

	_, err := h.Store()
	assert.ErrorIs(t, err, ErrHandleClosed)
	assert.NoFileExists(t, filepath.Join(dir, "taskboard.db"))
}

func TestNewHandleFor(t *testing.T) {
	mem, err := NewMemoryStore()
	require.NoError(t, err)

	h := NewHandleFor(mem)
	s, err := h.Store()
	require.NoError(t, err)
	assert.Same(t, mem, s)
	require.NoError(t, h.Close())
}
