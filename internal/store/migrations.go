package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

// schemaSQL creates every table and index. It only uses IF NOT EXISTS
// forms so it can run on every startup without touching existing data.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS board_columns (
	id       TEXT PRIMARY KEY,
	board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	title    TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	board_id    TEXT REFERENCES boards(id) ON DELETE CASCADE,
	column_id   TEXT REFERENCES board_columns(id) ON DELETE CASCADE,
	heading     TEXT NOT NULL DEFAULT '',
	tldr        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT 'medium',
	tags        TEXT NOT NULL DEFAULT '[]',
	due_date    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'To Do',
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	created_at  TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	CHECK ((board_id IS NULL) = (column_id IS NULL))
);

CREATE TABLE IF NOT EXISTS timeline_entries (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id   TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	action    TEXT NOT NULL DEFAULT '',
	logged_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS checklists (
	id      TEXT PRIMARY KEY,
	task_id TEXT NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
	title   TEXT NOT NULL DEFAULT 'Checklist',
	items   TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS attachments (
	row_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	cover_image INTEGER NOT NULL DEFAULT 0 CHECK(cover_image IN (0, 1)),
	created_at  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS comments (
	row_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	text       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS deleted_tasks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	board_id     TEXT,
	board_name   TEXT NOT NULL DEFAULT '',
	column_id    TEXT,
	column_title TEXT NOT NULL DEFAULT '',
	task_data    TEXT NOT NULL DEFAULT '{}',
	deleted_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	trigger_type TEXT NOT NULL,
	sent_at      TEXT NOT NULL,
	read_at      TEXT
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS note_tasks (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	PRIMARY KEY (note_id, task_id)
);

CREATE INDEX IF NOT EXISTS idx_board_columns_board ON board_columns(board_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks(board_id);
CREATE INDEX IF NOT EXISTS idx_tasks_column ON tasks(column_id, position);
CREATE INDEX IF NOT EXISTS idx_timeline_entries_task ON timeline_entries(task_id);
CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments(task_id);
CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id);
CREATE INDEX IF NOT EXISTS idx_deleted_tasks_deleted_at ON deleted_tasks(deleted_at);
CREATE INDEX IF NOT EXISTS idx_notifications_task_trigger ON notifications(task_id, trigger_type);
CREATE INDEX IF NOT EXISTS idx_notifications_sent_at ON notifications(sent_at);
CREATE INDEX IF NOT EXISTS idx_note_tasks_task ON note_tasks(task_id);
`

// migration is a forward-only data transformation. Each one detects for
// itself whether there is anything left to do, so the whole list runs on
// every startup.
type migration struct {
	name string
	run  func(ctx context.Context, tx *sqlx.Tx) error
}

// migrations is the ordered list of data migrations.
var migrations = []migration{
	{name: "normalize_due_dates", run: normalizeDueDates},
	{name: "extract_extended_data", run: extractExtendedData},
}

// ensureSchema creates any missing tables and indices.
func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// runMigrations applies every data migration, each in its own transaction.
func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	for _, m := range migrations {
		err := s.withTx(ctx, func(tx *sqlx.Tx) error {
			return m.run(ctx, tx)
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
	}
	return nil
}

// normalizeDueDates rewrites bare YYYY-MM-DD due dates to full timestamps
// at the default time of day.
func normalizeDueDates(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tasks SET due_date = due_date || ?
		WHERE due_date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'`,
		model.DefaultDueTime,
	)
	if err != nil {
		return fmt.Errorf("normalizing due dates: %w", err)
	}
	return nil
}

// legacyExtendedData is the blob older releases stored per task in
// tasks.extended_data.
type legacyExtendedData struct {
	Checklist   []model.ChecklistItem `json:"checklist"`
	Attachments []model.Attachment    `json:"attachments"`
	Comments    []model.Comment       `json:"comments"`
}

// extractExtendedData moves legacy per-task JSON blobs into the
// checklists, attachments and comments tables and drops the legacy column.
// A malformed blob only skips that task.
func extractExtendedData(ctx context.Context, tx *sqlx.Tx) error {
	var columnCount int
	err := tx.GetContext(ctx, &columnCount,
		"SELECT COUNT(*) FROM pragma_table_info('tasks') WHERE name = 'extended_data'")
	if err != nil {
		return fmt.Errorf("checking for extended_data column: %w", err)
	}
	if columnCount == 0 {
		return nil
	}

	var blobs []struct {
		TaskID string `db:"id"`
		Data   string `db:"extended_data"`
	}
	err = tx.SelectContext(ctx, &blobs, `
		SELECT id, extended_data FROM tasks
		WHERE extended_data IS NOT NULL AND extended_data != ''`)
	if err != nil {
		return fmt.Errorf("reading extended data: %w", err)
	}

	for _, blob := range blobs {
		var data legacyExtendedData
		if err := json.Unmarshal([]byte(blob.Data), &data); err != nil {
			log.Printf("migration: skipping extended data for task %s: %v", blob.TaskID, err)
			continue
		}
		ext := model.ExtendedData{
			Checklist:   data.Checklist,
			Attachments: data.Attachments,
			Comments:    data.Comments,
		}
		if err := insertExtendedData(ctx, tx, blob.TaskID, ext); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "ALTER TABLE tasks DROP COLUMN extended_data"); err != nil {
		return fmt.Errorf("dropping extended_data column: %w", err)
	}
	return nil
}
