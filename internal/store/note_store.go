package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

type noteRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
	HasInline bool   `db:"has_inline"`
}

// GetNotes returns note metadata and task links. Content is always nil;
// bodies are fetched one at a time with GetNoteContent.
//
// Notes that still carry a legacy inline body are migrated to the content
// store as a side effect, once per note.
func (s *SQLiteStore) GetNotes(ctx context.Context) ([]model.Note, error) {
	var rows []noteRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, title, created_at, updated_at, content != '' AS has_inline
		FROM notes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}

	var links []noteLinkRow
	err = s.db.SelectContext(ctx, &links,
		"SELECT note_id, task_id FROM note_tasks ORDER BY note_id, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying note links: %w", err)
	}
	taskIDs := make(map[string][]string)
	for _, l := range links {
		taskIDs[l.NoteID] = append(taskIDs[l.NoteID], l.TaskID)
	}

	notes := make([]model.Note, 0, len(rows))
	for _, r := range rows {
		if r.HasInline {
			if err := s.migrateNoteContent(ctx, r.ID); err != nil {
				log.Printf("store: migrating content of note %s: %v", r.ID, err)
			}
		}
		notes = append(notes, model.Note{
			ID:        r.ID,
			Title:     r.Title,
			TaskIDs:   orEmpty(taskIDs[r.ID]),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return notes, nil
}

// GetNoteContent returns the body of a note, or nil when it has none or
// it cannot be read. Read failures are logged, not returned.
func (s *SQLiteStore) GetNoteContent(ctx context.Context, id string) (json.RawMessage, error) {
	if err := validNoteID(id); err != nil {
		return nil, err
	}

	if err := s.migrateNoteContent(ctx, id); err != nil {
		log.Printf("store: migrating content of note %s: %v", id, err)
		return nil, nil
	}

	content, err := s.content.Get(ctx, id)
	if err != nil {
		log.Printf("store: reading content of note %s: %v", id, err)
		return nil, nil
	}
	return content, nil
}

// migrateNoteContent moves a legacy inline body into the content store and
// clears the inline column. If the content store already has a body, it
// wins and the inline copy is discarded, so a body never lives in both.
func (s *SQLiteStore) migrateNoteContent(ctx context.Context, id string) error {
	hasInline, err := s.inline.Has(ctx, id)
	if err != nil || !hasInline {
		return err
	}

	hasFile, err := s.content.Has(ctx, id)
	if err != nil {
		return err
	}
	if !hasFile {
		body, err := s.inline.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.content.Put(ctx, id, body); err != nil {
			return err
		}
	}
	return s.inline.Delete(ctx, id)
}

// SaveNotes replaces all note metadata and task links. Bodies are written
// only for notes whose Content is set; other bodies stay as they are.
func (s *SQLiteStore) SaveNotes(ctx context.Context, notes []model.Note) error {
	for _, n := range notes {
		if err := validNoteID(n.ID); err != nil {
			return fmt.Errorf("saving notes: %w", err)
		}
	}

	// Rows are reinserted without inline bodies, so legacy bodies move to
	// the content store first.
	var inlineIDs []string
	if err := s.db.SelectContext(ctx, &inlineIDs, "SELECT id FROM notes WHERE content != ''"); err != nil {
		return fmt.Errorf("saving notes: finding inline bodies: %w", err)
	}
	for _, id := range inlineIDs {
		if err := s.migrateNoteContent(ctx, id); err != nil {
			return fmt.Errorf("saving notes: migrating content of note %s: %w", id, err)
		}
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes"); err != nil {
			return fmt.Errorf("clearing notes: %w", err)
		}
		for _, n := range notes {
			if err := s.insertNote(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving notes: %w", err)
	}

	for _, n := range notes {
		if !n.HasContent() {
			continue
		}
		if err := s.content.Put(ctx, n.ID, n.Content); err != nil {
			return fmt.Errorf("saving content of note %s: %w", n.ID, err)
		}
	}
	return nil
}

// CreateNote inserts a note and its links, and stores its body if given.
func (s *SQLiteStore) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if err := validNoteID(n.ID); err != nil {
		return model.Note{}, err
	}
	now := s.timestamp()
	if n.CreatedAt == "" {
		n.CreatedAt = now
	}
	if n.UpdatedAt == "" {
		n.UpdatedAt = n.CreatedAt
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.insertNote(ctx, tx, n)
	})
	if err != nil {
		return model.Note{}, fmt.Errorf("creating note: %w", err)
	}

	if n.HasContent() {
		if err := s.content.Put(ctx, n.ID, n.Content); err != nil {
			return model.Note{}, fmt.Errorf("saving content of note %s: %w", n.ID, err)
		}
	}
	n.TaskIDs = orEmpty(n.TaskIDs)
	return n, nil
}

// UpdateNote applies a partial update and bumps updatedAt. Unknown ids are
// a no-op.
func (s *SQLiteStore) UpdateNote(ctx context.Context, id string, u model.NoteUpdate) error {
	if err := validNoteID(id); err != nil {
		return err
	}

	found := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM notes WHERE id = ?", id); err != nil {
			return fmt.Errorf("checking note: %w", err)
		}
		if n == 0 {
			return nil
		}
		found = true

		if u.Title != nil {
			_, err := tx.ExecContext(ctx,
				"UPDATE notes SET title = ?, updated_at = ? WHERE id = ?",
				*u.Title, s.timestamp(), id)
			if err != nil {
				return fmt.Errorf("updating title: %w", err)
			}
		} else {
			_, err := tx.ExecContext(ctx,
				"UPDATE notes SET updated_at = ? WHERE id = ?", s.timestamp(), id)
			if err != nil {
				return fmt.Errorf("touching note: %w", err)
			}
		}

		if u.TaskIDs != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM note_tasks WHERE note_id = ?", id); err != nil {
				return fmt.Errorf("clearing links: %w", err)
			}
			for _, taskID := range *u.TaskIDs {
				if err := insertNoteLink(ctx, tx, id, taskID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating note %s: %w", id, err)
	}

	if found && !model.IsNullJSON(u.Content) {
		if err := s.content.Put(ctx, id, u.Content); err != nil {
			return fmt.Errorf("saving content of note %s: %w", id, err)
		}
		if err := s.inline.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNote removes the note row, its links, and its body. A missing
// body file is not an error.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	if err := validNoteID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	if err := s.content.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting content of note %s: %w", id, err)
	}
	return nil
}

// LinkNoteToTask links a note to a task. Linking twice, or linking to a
// note or task that does not exist, is a no-op.
func (s *SQLiteStore) LinkNoteToTask(ctx context.Context, noteID, taskID string) error {
	if err := insertNoteLink(ctx, s.db, noteID, taskID); err != nil {
		return err
	}
	return nil
}

// UnlinkNoteFromTask removes a note-task link if present.
func (s *SQLiteStore) UnlinkNoteFromTask(ctx context.Context, noteID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM note_tasks WHERE note_id = ? AND task_id = ?", noteID, taskID)
	if err != nil {
		return fmt.Errorf("unlinking note %s from task %s: %w", noteID, taskID, err)
	}
	return nil
}

// insertNote writes a metadata row with an empty content column, plus its
// task links.
func (s *SQLiteStore) insertNote(ctx context.Context, tx *sqlx.Tx, n model.Note) error {
	createdAt := n.CreatedAt
	if createdAt == "" {
		createdAt = s.timestamp()
	}
	updatedAt := n.UpdatedAt
	if updatedAt == "" {
		updatedAt = createdAt
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, created_at, updated_at)
		VALUES (?, ?, '', ?, ?)`,
		n.ID, n.Title, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("inserting note %s: %w", n.ID, err)
	}

	for _, taskID := range n.TaskIDs {
		if err := insertNoteLink(ctx, tx, n.ID, taskID); err != nil {
			return err
		}
	}
	return nil
}

// insertNoteLink adds a note-task link, skipping duplicates and links to
// rows that do not exist.
func insertNoteLink(ctx context.Context, ex sqlx.ExecerContext, noteID, taskID string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR IGNORE INTO note_tasks (note_id, task_id)
		SELECT ?, ?
		WHERE EXISTS (SELECT 1 FROM notes WHERE id = ?)
		  AND EXISTS (SELECT 1 FROM tasks WHERE id = ?)`,
		noteID, taskID, noteID, taskID)
	if err != nil {
		return fmt.Errorf("linking note %s to task %s: %w", noteID, taskID, err)
	}
	return nil
}
