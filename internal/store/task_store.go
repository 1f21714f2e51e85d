package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskboard/internal/model"
)

// taskRow mirrors a row of the tasks table.
type taskRow struct {
	ID          string         `db:"id"`
	BoardID     sql.NullString `db:"board_id"`
	ColumnID    sql.NullString `db:"column_id"`
	Heading     string         `db:"heading"`
	TLDR        string         `db:"tldr"`
	Description string         `db:"description"`
	Priority    string         `db:"priority"`
	Tags        string         `db:"tags"`
	DueDate     string         `db:"due_date"`
	Status      string         `db:"status"`
	Completed   int            `db:"completed"`
	CreatedAt   string         `db:"created_at"`
	Position    int            `db:"position"`
}

const taskColumns = `id, board_id, column_id, heading, tldr, description, priority,
	tags, due_date, status, completed, created_at, position`

type timelineRow struct {
	TaskID   string `db:"task_id"`
	Action   string `db:"action"`
	LoggedAt string `db:"logged_at"`
}

type checklistRow struct {
	TaskID string `db:"task_id"`
	Items  string `db:"items"`
}

type attachmentRow struct {
	ID         string `db:"id"`
	TaskID     string `db:"task_id"`
	URL        string `db:"url"`
	Title      string `db:"title"`
	CoverImage int    `db:"cover_image"`
	CreatedAt  string `db:"created_at"`
}

type commentRow struct {
	ID        string `db:"id"`
	TaskID    string `db:"task_id"`
	Text      string `db:"text"`
	CreatedAt string `db:"created_at"`
}

// CreateTask inserts a task with its timeline and extended data, opening a
// gap at the requested position in the target column (or standalone list).
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (string, error) {
	if (task.BoardID == nil) != (task.ColumnID == nil) {
		return "", ErrInvalidPlacement
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt == "" {
		task.CreatedAt = s.timestamp()
	}
	if task.Position < 0 {
		task.Position = 0
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkPlacement(ctx, tx, task.BoardID, task.ColumnID); err != nil {
			return err
		}
		scope, args := listScope(task.ColumnID)
		_, err := tx.ExecContext(ctx,
			"UPDATE tasks SET position = position + 1 WHERE "+scope+" AND position >= ?",
			append(args, task.Position)...)
		if err != nil {
			return fmt.Errorf("shifting tasks for %s: %w", task.ID, err)
		}
		return insertTask(ctx, tx, task, task.BoardID, task.ColumnID, task.Position)
	})
	if err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}
	return task.ID, nil
}

// UpdateTask applies a field-level patch. Timeline entries beyond the
// stored count are appended; extended-data collections present in the
// patch replace the stored ones. Unknown ids are a no-op.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, u model.TaskUpdate) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("checking task: %w", err)
		}
		if exists == 0 {
			return nil
		}

		if err := updateTaskFields(ctx, tx, id, u); err != nil {
			return err
		}
		if u.Timeline != nil {
			if err := appendTimeline(ctx, tx, id, u.Timeline); err != nil {
				return err
			}
		}
		if u.ExtendedData != nil {
			if err := replaceExtendedData(ctx, tx, id, *u.ExtendedData); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return nil
}

// DeleteTask archives a snapshot of the task and removes it. Timeline,
// checklist, attachments, comments and note links go with it by cascade.
// Unknown ids are a no-op.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		tasks, err := loadTasks(ctx, tx, "id = ?", id)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		if err := archiveTask(ctx, tx, tasks[0], s.timestamp()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting task row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// MoveTask places a task at position in columnID of boardID, or in the
// standalone list when both are nil. Positions in the source and target
// lists are renumbered and a timeline entry records the move.
func (s *SQLiteStore) MoveTask(
	ctx context.Context,
	id string,
	boardID, columnID *string,
	position int,
) error {
	if (boardID == nil) != (columnID == nil) {
		return ErrInvalidPlacement
	}
	if position < 0 {
		position = 0
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current []struct {
			ColumnID sql.NullString `db:"column_id"`
			Position int            `db:"position"`
		}
		err := tx.SelectContext(ctx, &current,
			"SELECT column_id, position FROM tasks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("reading current placement: %w", err)
		}
		if len(current) == 0 {
			return nil
		}
		if err := checkPlacement(ctx, tx, boardID, columnID); err != nil {
			return err
		}

		var oldColumn *string
		if current[0].ColumnID.Valid {
			oldColumn = &current[0].ColumnID.String
		}

		scope, args := listScope(oldColumn)
		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET position = position - 1 WHERE "+scope+" AND position > ? AND id != ?",
			append(args, current[0].Position, id)...)
		if err != nil {
			return fmt.Errorf("closing gap in source list: %w", err)
		}

		scope, args = listScope(columnID)
		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET position = position + 1 WHERE "+scope+" AND position >= ? AND id != ?",
			append(args, position, id)...)
		if err != nil {
			return fmt.Errorf("opening gap in target list: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET board_id = ?, column_id = ?, position = ? WHERE id = ?",
			nullString(boardID), nullString(columnID), position, id)
		if err != nil {
			return fmt.Errorf("updating placement: %w", err)
		}

		action := "Moved to standalone tasks"
		if columnID != nil {
			var title string
			if err := tx.GetContext(ctx, &title,
				"SELECT title FROM board_columns WHERE id = ?", *columnID); err != nil {
				return fmt.Errorf("reading target column: %w", err)
			}
			action = "Moved to " + title
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO timeline_entries (task_id, action, logged_at) VALUES (?, ?, ?)",
			id, action, s.timestamp())
		if err != nil {
			return fmt.Errorf("recording move: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("moving task %s: %w", id, err)
	}
	return nil
}

// checkPlacement verifies that columnID exists and belongs to boardID.
// Standalone placements always pass.
func checkPlacement(ctx context.Context, tx *sqlx.Tx, boardID, columnID *string) error {
	if boardID == nil && columnID == nil {
		return nil
	}
	if boardID == nil || columnID == nil {
		return ErrInvalidPlacement
	}

	var owner string
	err := tx.GetContext(ctx, &owner, "SELECT board_id FROM board_columns WHERE id = ?", *columnID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: column %s does not exist", ErrInvalidPlacement, *columnID)
	}
	if err != nil {
		return fmt.Errorf("reading column %s: %w", *columnID, err)
	}
	if owner != *boardID {
		return fmt.Errorf("%w: column %s belongs to board %s, not %s",
			ErrInvalidPlacement, *columnID, owner, *boardID)
	}
	return nil
}

// listScope returns the WHERE fragment selecting the ordered list a task
// lives in: a column, or the standalone list.
func listScope(columnID *string) (string, []any) {
	if columnID == nil {
		return "board_id IS NULL", nil
	}
	return "column_id = ?", []any{*columnID}
}

// insertTask writes one task row plus its timeline and extended data,
// filling in defaults for unset fields.
func insertTask(
	ctx context.Context,
	tx *sqlx.Tx,
	t model.Task,
	boardID, columnID *string,
	position int,
) error {
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.DefaultStatus
	}
	tags, err := model.EncodeList(t.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags for task %s: %w", t.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(boardID), nullString(columnID),
		t.Heading, t.TLDR, t.Description, t.Priority,
		tags, t.DueDate, t.Status, boolToInt(t.Completed), t.CreatedAt, position,
	)
	if err != nil {
		return fmt.Errorf("inserting task %s: %w", t.ID, err)
	}

	if err := insertTimeline(ctx, tx, t.ID, t.Timeline); err != nil {
		return err
	}
	return insertExtendedData(ctx, tx, t.ID, t.ExtendedData)
}

func insertTimeline(ctx context.Context, tx *sqlx.Tx, taskID string, entries []model.TimelineEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO timeline_entries (task_id, action, logged_at) VALUES (?, ?, ?)",
			taskID, e.Action, e.Timestamp)
		if err != nil {
			return fmt.Errorf("inserting timeline entry for task %s: %w", taskID, err)
		}
	}
	return nil
}

// appendTimeline inserts the entries of incoming beyond the number already
// stored. The caller is expected to send its full timeline with a stable
// prefix; a shorter timeline is ignored rather than truncating history.
func appendTimeline(ctx context.Context, tx *sqlx.Tx, taskID string, incoming []model.TimelineEntry) error {
	var stored int
	err := tx.GetContext(ctx, &stored,
		"SELECT COUNT(*) FROM timeline_entries WHERE task_id = ?", taskID)
	if err != nil {
		return fmt.Errorf("counting timeline entries: %w", err)
	}
	if len(incoming) < stored {
		log.Printf("store: task %s timeline has %d entries, %d stored; not appending",
			taskID, len(incoming), stored)
		return nil
	}
	return insertTimeline(ctx, tx, taskID, incoming[stored:])
}

// insertExtendedData writes the checklist, attachments and comments of a
// task. All checklist items are grouped under one checklist.
func insertExtendedData(ctx context.Context, tx *sqlx.Tx, taskID string, ext model.ExtendedData) error {
	if len(ext.Checklist) > 0 {
		if err := insertChecklist(ctx, tx, taskID, ext.Checklist); err != nil {
			return err
		}
	}
	if err := insertAttachments(ctx, tx, taskID, ext.Attachments); err != nil {
		return err
	}
	return insertComments(ctx, tx, taskID, ext.Comments)
}

// replaceExtendedData replaces each collection present in ext. Nil
// collections are left untouched.
func replaceExtendedData(ctx context.Context, tx *sqlx.Tx, taskID string, ext model.ExtendedData) error {
	if ext.Checklist != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM checklists WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("clearing checklist for task %s: %w", taskID, err)
		}
		if len(ext.Checklist) > 0 {
			if err := insertChecklist(ctx, tx, taskID, ext.Checklist); err != nil {
				return err
			}
		}
	}
	if ext.Attachments != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attachments WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("clearing attachments for task %s: %w", taskID, err)
		}
		if err := insertAttachments(ctx, tx, taskID, ext.Attachments); err != nil {
			return err
		}
	}
	if ext.Comments != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("clearing comments for task %s: %w", taskID, err)
		}
		if err := insertComments(ctx, tx, taskID, ext.Comments); err != nil {
			return err
		}
	}
	return nil
}

func insertChecklist(ctx context.Context, tx *sqlx.Tx, taskID string, items model.ChecklistItems) error {
	encoded, err := model.EncodeList(items)
	if err != nil {
		return fmt.Errorf("encoding checklist for task %s: %w", taskID, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO checklists (id, task_id, title, items) VALUES (?, ?, ?, ?)",
		uuid.New().String(), taskID, model.DefaultChecklistTitle, encoded)
	if err != nil {
		return fmt.Errorf("inserting checklist for task %s: %w", taskID, err)
	}
	return nil
}

func insertAttachments(ctx context.Context, tx *sqlx.Tx, taskID string, attachments []model.Attachment) error {
	for _, a := range attachments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (id, task_id, url, title, cover_image, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, taskID, a.URL, a.Title, boolToInt(a.CoverImage), a.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting attachment %s: %w", a.ID, err)
		}
	}
	return nil
}

func insertComments(ctx context.Context, tx *sqlx.Tx, taskID string, comments []model.Comment) error {
	for _, c := range comments {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO comments (id, task_id, text, created_at) VALUES (?, ?, ?, ?)",
			c.ID, taskID, c.Text, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting comment %s: %w", c.ID, err)
		}
	}
	return nil
}

// updateTaskFields writes the scalar fields present in u.
func updateTaskFields(ctx context.Context, tx *sqlx.Tx, id string, u model.TaskUpdate) error {
	var sets []string
	var args []any

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if u.Heading != nil {
		set("heading", *u.Heading)
	}
	if u.TLDR != nil {
		set("tldr", *u.TLDR)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Priority != nil {
		set("priority", *u.Priority)
	}
	if u.Tags != nil {
		tags, err := model.EncodeList(*u.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		set("tags", tags)
	}
	if u.DueDate != nil {
		set("due_date", *u.DueDate)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.Completed != nil {
		set("completed", boolToInt(*u.Completed))
	}

	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := tx.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating fields: %w", err)
	}
	return nil
}

// archiveTask records a deleted-task snapshot, resolving the board name
// and column title as they are now.
func archiveTask(ctx context.Context, tx *sqlx.Tx, t model.Task, deletedAt string) error {
	var boardName, columnTitle string
	if t.BoardID != nil {
		err := tx.GetContext(ctx, &boardName, "SELECT name FROM boards WHERE id = ?", *t.BoardID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reading board name: %w", err)
		}
	}
	if t.ColumnID != nil {
		err := tx.GetContext(ctx, &columnTitle, "SELECT title FROM board_columns WHERE id = ?", *t.ColumnID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reading column title: %w", err)
		}
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deleted_tasks (board_id, board_name, column_id, column_title, task_data, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullString(t.BoardID), boardName, nullString(t.ColumnID), columnTitle,
		string(data), deletedAt)
	if err != nil {
		return fmt.Errorf("archiving task: %w", err)
	}
	return nil
}

// loadTasks reads the tasks matching where and hydrates them with one
// query per child table, grouping children in memory. Tasks come back
// ordered by (column_id, position).
func loadTasks(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]model.Task, error) {
	filter := ""
	if where != "" {
		filter = " WHERE " + where
	}
	owned := " WHERE task_id IN (SELECT id FROM tasks" + filter + ")"

	var rows []taskRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT "+taskColumns+" FROM tasks"+filter+" ORDER BY column_id, position, rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	if len(rows) == 0 {
		return []model.Task{}, nil
	}

	var timeline []timelineRow
	err = sqlx.SelectContext(ctx, q, &timeline,
		"SELECT task_id, action, logged_at FROM timeline_entries"+owned+" ORDER BY task_id, id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying timeline entries: %w", err)
	}

	var checklists []checklistRow
	err = sqlx.SelectContext(ctx, q, &checklists,
		"SELECT task_id, items FROM checklists"+owned, args...)
	if err != nil {
		return nil, fmt.Errorf("querying checklists: %w", err)
	}

	var attachments []attachmentRow
	err = sqlx.SelectContext(ctx, q, &attachments,
		"SELECT id, task_id, url, title, cover_image, created_at FROM attachments"+owned+" ORDER BY row_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}

	var comments []commentRow
	err = sqlx.SelectContext(ctx, q, &comments,
		"SELECT id, task_id, text, created_at FROM comments"+owned+" ORDER BY row_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}

	timelineByTask := make(map[string][]model.TimelineEntry)
	for _, e := range timeline {
		timelineByTask[e.TaskID] = append(timelineByTask[e.TaskID],
			model.TimelineEntry{Action: e.Action, Timestamp: e.LoggedAt})
	}
	checklistByTask := make(map[string]model.ChecklistItems)
	for _, c := range checklists {
		checklistByTask[c.TaskID] = model.DecodeList[model.ChecklistItem](c.Items)
	}
	attachmentsByTask := make(map[string][]model.Attachment)
	for _, a := range attachments {
		attachmentsByTask[a.TaskID] = append(attachmentsByTask[a.TaskID], model.Attachment{
			ID: a.ID, URL: a.URL, Title: a.Title,
			CoverImage: a.CoverImage != 0, CreatedAt: a.CreatedAt,
		})
	}
	commentsByTask := make(map[string][]model.Comment)
	for _, c := range comments {
		commentsByTask[c.TaskID] = append(commentsByTask[c.TaskID],
			model.Comment{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt})
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t := r.toModel()
		t.Timeline = orEmpty(timelineByTask[t.ID])
		t.ExtendedData = model.ExtendedData{
			Checklist:   checklistByTask[t.ID],
			Attachments: orEmpty(attachmentsByTask[t.ID]),
			Comments:    orEmpty(commentsByTask[t.ID]),
		}
		if t.ExtendedData.Checklist == nil {
			t.ExtendedData.Checklist = model.ChecklistItems{}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r taskRow) toModel() model.Task {
	t := model.Task{
		ID:          r.ID,
		Heading:     r.Heading,
		TLDR:        r.TLDR,
		Description: r.Description,
		Priority:    r.Priority,
		Tags:        model.DecodeList[string](r.Tags),
		DueDate:     r.DueDate,
		Status:      r.Status,
		Completed:   r.Completed != 0,
		CreatedAt:   r.CreatedAt,
		Position:    r.Position,
	}
	if r.BoardID.Valid {
		t.BoardID = &r.BoardID.String
	}
	if r.ColumnID.Valid {
		t.ColumnID = &r.ColumnID.String
	}
	return t
}

// orEmpty turns a nil slice into an empty one so it encodes as [].
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// GetDueTasks returns the incomplete tasks that have a due date, in any
// board or standalone. Reminder scans read from here.
func (s *SQLiteStore) GetDueTasks(ctx context.Context) ([]model.Task, error) {
	return loadTasks(ctx, s.db, "completed = 0 AND due_date != ''")
}

// GetTask returns a fully hydrated task, or nil if id does not exist.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	tasks, err := loadTasks(ctx, s.db, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}
