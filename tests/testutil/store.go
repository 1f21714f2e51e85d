package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// NewTestStore creates a SQLiteStore in a temporary directory with the
// schema and all migrations applied. It automatically closes the store
// when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "taskboard.db"), filepath.Join(dir, "notes"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// SeedBoard saves a board with the given column titles and returns the
// board. Column ids are "<boardID>-col-<index>".
func SeedBoard(t *testing.T, s store.Store, boardID, name string, columns ...string) model.Board {
	t.Helper()

	board := model.Board{ID: boardID, Name: name, CreatedAt: "2024-01-01T00:00:00.000Z"}
	for i, title := range columns {
		board.Columns = append(board.Columns, model.Column{
			ID:    boardID + "-col-" + string(rune('0'+i)),
			Title: title,
		})
	}

	ctx := context.Background()
	state, err := s.GetBoards(ctx)
	if err != nil {
		t.Fatalf("reading boards: %v", err)
	}
	state.Boards = append(state.Boards, board)
	if err := s.SaveBoards(ctx, *state); err != nil {
		t.Fatalf("seeding board %s: %v", boardID, err)
	}
	return board
}
