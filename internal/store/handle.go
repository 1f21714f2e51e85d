package store

import (
	"errors"
	"sync"
)

// ErrHandleClosed is returned by Handle.Store after Close.
var ErrHandleClosed = errors.New("store handle is closed")

// Handle opens the store on first use and hands the same instance to every
// caller after that. It is safe for concurrent use.
type Handle struct {
	open func() (*SQLiteStore, error)

	mu     sync.Mutex
	store  *SQLiteStore
	closed bool
}

// NewHandle returns a handle that opens the store at dbPath and notesDir
// on first use, falling back to memory if the durable store fails.
func NewHandle(dbPath, notesDir string) *Handle {
	return &Handle{open: func() (*SQLiteStore, error) {
		return Open(dbPath, notesDir)
	}}
}

// NewHandleFor wraps an already open store.
func NewHandleFor(s *SQLiteStore) *Handle {
	return &Handle{open: func() (*SQLiteStore, error) { return s, nil }}
}

// Store returns the shared store, opening it if needed. A failed open is
// retried on the next call.
func (h *Handle) Store() (*SQLiteStore, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.store == nil {
		s, err := h.open()
		if err != nil {
			return nil, err
		}
		h.store = s
	}
	return h.store, nil
}

// Close closes the store if it was opened. It is safe to call more than
// once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.store == nil {
		return nil
	}
	return h.store.Close()
}
