package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskboard/internal/model"
)

// memoryDSN opens a private, process-local database.
const memoryDSN = ":memory:"

// Errors returned by the store.
var (
	// ErrInvalidPlacement is returned when exactly one of boardId and
	// columnId is set. Tasks are either standalone (both nil) or placed.
	ErrInvalidPlacement = errors.New("boardId and columnId must both be set or both be empty")

	// ErrInvalidNoteID is returned for note ids that cannot name a file
	// inside the notes directory.
	ErrInvalidNoteID = errors.New("invalid note id")
)

// SQLiteStore implements the Store interface using a local SQLite database
// for relational data and a ContentStore for note bodies.
type SQLiteStore struct {
	db      *sqlx.DB
	content ContentStore
	inline  *inlineContent
	durable bool
	now     func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and a notes
// directory at notesDir, enables WAL mode and foreign keys, and brings the
// schema up to date. Both must be usable: a store whose note bodies could
// not be written to disk is not durable.
func NewSQLiteStore(dbPath, notesDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	content, err := NewFileContentStore(notesDir)
	if err != nil {
		return nil, fmt.Errorf("opening notes directory: %w", err)
	}

	s, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	s.content = content
	s.durable = true

	return s, nil
}

// NewMemoryStore returns a store backed by an in-memory database and
// in-memory note bodies. Nothing survives Close.
func NewMemoryStore() (*SQLiteStore, error) {
	s, err := openSQLite(memoryDSN)
	if err != nil {
		return nil, err
	}
	s.content = NewMemoryContentStore()
	return s, nil
}

// Open opens the durable store and falls back to an in-memory store when
// the durable one cannot be initialized, so the application stays usable
// for the session. Durable reports which one was returned.
func Open(dbPath, notesDir string) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(dbPath, notesDir)
	if err == nil {
		return s, nil
	}
	log.Printf("store: durable store at %s unavailable, falling back to memory: %v", dbPath, err)

	s, memErr := NewMemoryStore()
	if memErr != nil {
		return nil, fmt.Errorf("opening fallback store: %w", errors.Join(err, memErr))
	}
	return s, nil
}

// openSQLite opens the database, applies pragmas and runs schema creation
// and migrations.
func openSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection serializes writers and keeps an in-memory
	// database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	// Enable WAL mode for better read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys; cascades depend on it.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	s.inline = &inlineContent{db: db}

	ctx := context.Background()
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Durable reports whether the store persists to disk. It is false when
// Open fell back to memory.
func (s *SQLiteStore) Durable() bool {
	return s.durable
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source used for generated timestamps.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// timestamp returns the current time as a stored timestamp string.
func (s *SQLiteStore) timestamp() string {
	return model.FormatTimestamp(s.now())
}

// withTx runs fn in a transaction, committing on success and rolling back
// on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString converts an optional id to a value SQLite stores as NULL.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
