package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

type deletedTaskRow struct {
	BoardID     sql.NullString `db:"board_id"`
	BoardName   string         `db:"board_name"`
	ColumnID    sql.NullString `db:"column_id"`
	ColumnTitle string         `db:"column_title"`
	TaskData    string         `db:"task_data"`
	DeletedAt   string         `db:"deleted_at"`
}

// emptyObject stands in for task payloads that cannot be decoded.
var emptyObject = json.RawMessage("{}")

// GetDeletedTasks returns archived task snapshots, most recently deleted
// first. A snapshot whose payload is not a JSON object reads as {}.
func (s *SQLiteStore) GetDeletedTasks(ctx context.Context) ([]model.DeletedTask, error) {
	var rows []deletedTaskRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT board_id, board_name, column_id, column_title, task_data, deleted_at
		FROM deleted_tasks ORDER BY deleted_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying deleted tasks: %w", err)
	}

	deleted := make([]model.DeletedTask, 0, len(rows))
	for _, r := range rows {
		d := model.DeletedTask{
			BoardName:   r.BoardName,
			ColumnTitle: r.ColumnTitle,
			Task:        decodeTaskSnapshot(r.TaskData),
			DeletedAt:   r.DeletedAt,
		}
		if r.BoardID.Valid {
			d.BoardID = &r.BoardID.String
		}
		if r.ColumnID.Valid {
			d.ColumnID = &r.ColumnID.String
		}
		deleted = append(deleted, d)
	}
	return deleted, nil
}

// SaveDeletedTasks replaces the whole archive with deleted in one
// transaction.
func (s *SQLiteStore) SaveDeletedTasks(ctx context.Context, deleted []model.DeletedTask) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM deleted_tasks"); err != nil {
			return fmt.Errorf("clearing deleted tasks: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO deleted_tasks (board_id, board_name, column_id, column_title, task_data, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert statement: %w", err)
		}
		defer stmt.Close()

		for _, d := range deleted {
			data := d.Task
			if model.IsNullJSON(data) {
				data = emptyObject
			}
			_, err := stmt.ExecContext(ctx,
				nullString(d.BoardID), d.BoardName, nullString(d.ColumnID), d.ColumnTitle,
				string(data), d.DeletedAt)
			if err != nil {
				return fmt.Errorf("inserting deleted task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving deleted tasks: %w", err)
	}
	return nil
}

// decodeTaskSnapshot returns the stored payload if it is a JSON object.
func decodeTaskSnapshot(data string) json.RawMessage {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return emptyObject
	}
	return json.RawMessage(trimmed)
}
