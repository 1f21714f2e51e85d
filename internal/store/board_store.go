package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

type boardRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

type columnRow struct {
	ID      string `db:"id"`
	BoardID string `db:"board_id"`
	Title   string `db:"title"`
}

type noteLinkRow struct {
	NoteID string `db:"note_id"`
	TaskID string `db:"task_id"`
}

// GetBoards returns every board with its columns and fully hydrated tasks,
// the standalone tasks, and the active board id. Each table is read once
// and the tree is assembled in memory.
func (s *SQLiteStore) GetBoards(ctx context.Context) (*model.BoardState, error) {
	var boards []boardRow
	err := s.db.SelectContext(ctx, &boards,
		"SELECT id, name, created_at FROM boards ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying boards: %w", err)
	}

	var columns []columnRow
	err = s.db.SelectContext(ctx, &columns,
		"SELECT id, board_id, title FROM board_columns ORDER BY board_id, position, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}

	tasks, err := loadTasks(ctx, s.db, "")
	if err != nil {
		return nil, err
	}

	activeBoardID, err := s.activeBoardID(ctx, s.db)
	if err != nil {
		return nil, err
	}

	state := &model.BoardState{
		Boards:          make([]model.Board, 0, len(boards)),
		StandaloneTasks: []model.Task{},
		ActiveBoardID:   activeBoardID,
	}

	tasksByColumn := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.ColumnID == nil {
			state.StandaloneTasks = append(state.StandaloneTasks, t)
			continue
		}
		tasksByColumn[*t.ColumnID] = append(tasksByColumn[*t.ColumnID], t)
	}

	columnsByBoard := make(map[string][]model.Column)
	for _, c := range columns {
		columnsByBoard[c.BoardID] = append(columnsByBoard[c.BoardID], model.Column{
			ID:    c.ID,
			Title: c.Title,
			Tasks: orEmpty(tasksByColumn[c.ID]),
		})
	}

	for _, b := range boards {
		state.Boards = append(state.Boards, model.Board{
			ID:        b.ID,
			Name:      b.Name,
			CreatedAt: b.CreatedAt,
			Columns:   orEmpty(columnsByBoard[b.ID]),
		})
	}

	return state, nil
}

// SaveBoards replaces every board, column and task (with their children)
// with the given state in one transaction, and stores the active board id.
// Column and task positions are taken from their index in the input.
// Note links to tasks that survive the replace are kept.
func (s *SQLiteStore) SaveBoards(ctx context.Context, state model.BoardState) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var links []noteLinkRow
		if err := tx.SelectContext(ctx, &links, "SELECT note_id, task_id FROM note_tasks"); err != nil {
			return fmt.Errorf("reading note links: %w", err)
		}

		for _, stmt := range []string{
			"DELETE FROM tasks",
			"DELETE FROM board_columns",
			"DELETE FROM boards",
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clearing boards: %w", err)
			}
		}

		for _, b := range state.Boards {
			createdAt := b.CreatedAt
			if createdAt == "" {
				createdAt = s.timestamp()
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO boards (id, name, created_at) VALUES (?, ?, ?)",
				b.ID, b.Name, createdAt)
			if err != nil {
				return fmt.Errorf("inserting board %s: %w", b.ID, err)
			}

			for ci, c := range b.Columns {
				_, err := tx.ExecContext(ctx,
					"INSERT INTO board_columns (id, board_id, title, position) VALUES (?, ?, ?, ?)",
					c.ID, b.ID, c.Title, ci)
				if err != nil {
					return fmt.Errorf("inserting column %s: %w", c.ID, err)
				}

				boardID, columnID := b.ID, c.ID
				for ti, t := range c.Tasks {
					if err := insertTask(ctx, tx, s.withCreatedAt(t), &boardID, &columnID, ti); err != nil {
						return err
					}
				}
			}
		}

		for i, t := range state.StandaloneTasks {
			if err := insertTask(ctx, tx, s.withCreatedAt(t), nil, nil, i); err != nil {
				return err
			}
		}

		for _, l := range links {
			if err := insertNoteLink(ctx, tx, l.NoteID, l.TaskID); err != nil {
				return err
			}
		}

		return upsertSetting(ctx, tx, model.SettingActiveBoardID, state.ActiveBoardID)
	})
	if err != nil {
		return fmt.Errorf("saving boards: %w", err)
	}
	return nil
}

func (s *SQLiteStore) withCreatedAt(t model.Task) model.Task {
	if t.CreatedAt == "" {
		t.CreatedAt = s.timestamp()
	}
	return t
}

// activeBoardID reads the activeBoardId setting; an unset or non-string
// value reads as nil.
func (s *SQLiteStore) activeBoardID(ctx context.Context, q sqlx.QueryerContext) (*string, error) {
	value, ok, err := getSetting(ctx, q, model.SettingActiveBoardID)
	if err != nil || !ok {
		return nil, err
	}
	id, isString := value.(string)
	if !isString || id == "" {
		return nil, nil
	}
	return &id, nil
}
