package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// noteFileExt is the extension of note body files.
const noteFileExt = ".json"

// ContentStore holds note bodies keyed by note id. Bodies are JSON values.
// Get returns (nil, nil) when a note has no stored body.
type ContentStore interface {
	Has(ctx context.Context, noteID string) (bool, error)
	Get(ctx context.Context, noteID string) (json.RawMessage, error)
	Put(ctx context.Context, noteID string, content json.RawMessage) error
	Delete(ctx context.Context, noteID string) error
}

// validNoteID rejects ids that could address a file outside the notes
// directory.
func validNoteID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidNoteID, id)
	}
	return nil
}

// FileContentStore keeps one JSON file per note in a directory.
type FileContentStore struct {
	dir string
}

// NewFileContentStore creates dir if needed and returns a store rooted there.
func NewFileContentStore(dir string) (*FileContentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating notes directory %s: %w", dir, err)
	}
	return &FileContentStore{dir: dir}, nil
}

// Dir returns the directory holding note files.
func (f *FileContentStore) Dir() string {
	return f.dir
}

func (f *FileContentStore) path(noteID string) (string, error) {
	if err := validNoteID(noteID); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, noteID+noteFileExt), nil
}

// Has reports whether a body file exists for noteID.
func (f *FileContentStore) Has(_ context.Context, noteID string) (bool, error) {
	p, err := f.path(noteID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking note file %s: %w", noteID, err)
	}
	return true, nil
}

// Get reads the body file for noteID.
func (f *FileContentStore) Get(_ context.Context, noteID string) (json.RawMessage, error) {
	p, err := f.path(noteID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading note file %s: %w", noteID, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("note file %s is not valid JSON", noteID)
	}
	return json.RawMessage(data), nil
}

// Put writes the body file for noteID, replacing it atomically.
func (f *FileContentStore) Put(_ context.Context, noteID string, content json.RawMessage) error {
	p, err := f.path(noteID)
	if err != nil {
		return err
	}
	if !json.Valid(content) {
		return fmt.Errorf("content for note %s is not valid JSON", noteID)
	}

	tmp, err := os.CreateTemp(f.dir, noteID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for note %s: %w", noteID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing note file %s: %w", noteID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing note file %s: %w", noteID, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replacing note file %s: %w", noteID, err)
	}
	return nil
}

// Delete removes the body file for noteID. A missing file is not an error.
func (f *FileContentStore) Delete(_ context.Context, noteID string) error {
	p, err := f.path(noteID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing note file %s: %w", noteID, err)
	}
	return nil
}

// MemoryContentStore keeps note bodies in memory. It backs the ephemeral
// store and stands in when the notes directory cannot be created.
type MemoryContentStore struct {
	mu     sync.RWMutex
	bodies map[string]json.RawMessage
}

// NewMemoryContentStore returns an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{bodies: make(map[string]json.RawMessage)}
}

func (m *MemoryContentStore) Has(_ context.Context, noteID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bodies[noteID]
	return ok, nil
}

func (m *MemoryContentStore) Get(_ context.Context, noteID string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.bodies[noteID]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), body...), nil
}

func (m *MemoryContentStore) Put(_ context.Context, noteID string, content json.RawMessage) error {
	if err := validNoteID(noteID); err != nil {
		return err
	}
	if !json.Valid(content) {
		return fmt.Errorf("content for note %s is not valid JSON", noteID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[noteID] = append(json.RawMessage(nil), content...)
	return nil
}

func (m *MemoryContentStore) Delete(_ context.Context, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bodies, noteID)
	return nil
}

// inlineContent reads and clears the legacy notes.content column. Bodies
// only ever move out of it; Put is not supported.
type inlineContent struct {
	db sqlx.ExtContext
}

func (c *inlineContent) Has(ctx context.Context, noteID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, c.db, &n,
		"SELECT COUNT(*) FROM notes WHERE id = ? AND content != ''", noteID)
	if err != nil {
		return false, fmt.Errorf("checking inline content for note %s: %w", noteID, err)
	}
	return n > 0, nil
}

func (c *inlineContent) Get(ctx context.Context, noteID string) (json.RawMessage, error) {
	var raw []string
	err := sqlx.SelectContext(ctx, c.db, &raw,
		"SELECT content FROM notes WHERE id = ?", noteID)
	if err != nil {
		return nil, fmt.Errorf("reading inline content for note %s: %w", noteID, err)
	}
	if len(raw) == 0 || raw[0] == "" {
		return nil, nil
	}
	return legacyContentJSON(raw[0])
}

func (c *inlineContent) Put(context.Context, string, json.RawMessage) error {
	return errors.New("inline note content is read-only")
}

func (c *inlineContent) Delete(ctx context.Context, noteID string) error {
	_, err := c.db.ExecContext(ctx, "UPDATE notes SET content = '' WHERE id = ?", noteID)
	if err != nil {
		return fmt.Errorf("clearing inline content for note %s: %w", noteID, err)
	}
	return nil
}

// legacyContentJSON converts a legacy inline body to JSON. Values that
// look like JSON and parse are kept as-is; anything else becomes a JSON
// string.
func legacyContentJSON(s string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`) {
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed), nil
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
