package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func findTask(t *testing.T, state *model.BoardState, id string) model.Task {
	t.Helper()

	for _, task := range state.StandaloneTasks {
		if task.ID == id {
			return task
		}
	}
	for _, b := range state.Boards {
		for _, c := range b.Columns {
			for _, task := range c.Tasks {
				if task.ID == id {
					return task
				}
			}
		}
	}
	t.Fatalf("task %s not found", id)
	return model.Task{}
}

func countRows(t *testing.T, s *SQLiteStore, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, s.db.Get(&n, query, args...))
	return n
}

func TestCreateTask_Defaults(t *testing.T) {
	s := newTestStore(t)
	fixClock(t, s, "2024-03-01T09:00:00Z")
	ctx := context.Background()

	id, err := s.CreateTask(ctx, model.Task{Heading: "No id"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	task := findTask(t, state, id)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.DefaultStatus, task.Status)
	assert.Equal(t, "2024-03-01T09:00:00.000Z", task.CreatedAt)
	assert.True(t, task.IsStandalone())
	assert.NotNil(t, task.Tags)
	assert.NotNil(t, task.Timeline)
	assert.NotNil(t, task.ExtendedData.Checklist)
	assert.NotNil(t, task.ExtendedData.Attachments)
	assert.NotNil(t, task.ExtendedData.Comments)
}

func TestCreateTask_WithChildren(t *testing.T) {
	s := newTestStore(t)
	seedBoard(t, s, "b1", "To Do")
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{
		ID:       "t1",
		BoardID:  ptr("b1"),
		ColumnID: ptr("b1/To Do"),
		Heading:  "Write proposal",
		Tags:     model.StringList{"docs", "q1"},
		DueDate:  "2024-03-02T10:00:00Z",
		Timeline: []model.TimelineEntry{{Action: "Created", Timestamp: "2024-03-01T09:00:00.000Z"}},
		ExtendedData: model.ExtendedData{
			Checklist:   model.ChecklistItems{{ID: "c1", Text: "Outline"}, {ID: "c2", Text: "Draft", Completed: true}},
			Attachments: []model.Attachment{{ID: "a1", URL: "https://example.com/a.png", CoverImage: true}},
			Comments:    []model.Comment{{ID: "m1", Text: "Looks good"}},
		},
	})
	require.NoError(t, err)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, state.Boards, 1)
	require.Len(t, state.Boards[0].Columns[0].Tasks, 1)

	task := state.Boards[0].Columns[0].Tasks[0]
	assert.Equal(t, "b1", *task.BoardID)
	assert.Equal(t, "b1/To Do", *task.ColumnID)
	assert.Equal(t, model.StringList{"docs", "q1"}, task.Tags)
	assert.Equal(t, "2024-03-02T10:00:00Z", task.DueDate)
	require.Len(t, task.Timeline, 1)
	assert.Equal(t, "Created", task.Timeline[0].Action)
	assert.Len(t, task.ExtendedData.Checklist, 2)
	assert.True(t, task.ExtendedData.Checklist[1].Completed)
	require.Len(t, task.ExtendedData.Attachments, 1)
	assert.True(t, task.ExtendedData.Attachments[0].CoverImage)
	require.Len(t, task.ExtendedData.Comments, 1)
	assert.Equal(t, "Looks good", task.ExtendedData.Comments[0].Text)
}

func TestCreateTask_RejectsHalfPlacement(t *testing.T) {
	s := newTestStore(t)
	seedBoard(t, s, "b1", "To Do")
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", BoardID: ptr("b1")})
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	_, err = s.CreateTask(ctx, model.Task{ID: "t2", ColumnID: ptr("b1/To Do")})
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM tasks"))
}

func TestPlacement_ColumnMustBelongToBoard(t *testing.T) {
	s := newTestStore(t)
	seedBoard(t, s, "a", "To Do")
	seedBoard(t, s, "b", "To Do")
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", BoardID: ptr("a"), ColumnID: ptr("b/To Do")})
	assert.ErrorIs(t, err, ErrInvalidPlacement)
	_, err = s.CreateTask(ctx, model.Task{ID: "t1", BoardID: ptr("a"), ColumnID: ptr("a/Missing")})
	assert.ErrorIs(t, err, ErrInvalidPlacement)
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM tasks"))

	_, err = s.CreateTask(ctx, model.Task{ID: "t1", BoardID: ptr("a"), ColumnID: ptr("a/To Do")})
	require.NoError(t, err)

	err = s.MoveTask(ctx, "t1", ptr("a"), ptr("b/To Do"), 0)
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "a/To Do", *task.ColumnID)
	assert.Empty(t, task.Timeline)
}

func TestArchiveTask_LookupErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := model.Task{ID: "gone", BoardID: ptr("no-board"), ColumnID: ptr("no-column")}

	tx, err := s.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, archiveTask(ctx, tx, task, "2024-03-05T12:00:00.000Z"))
	require.NoError(t, tx.Rollback())

	err = archiveTask(ctx, tx, task, "2024-03-05T12:00:00.000Z")
	assert.ErrorIs(t, err, sql.ErrTxDone)
}

func TestStandaloneCheckConstraint(t *testing.T) {
	s := newTestStore(t)
	seedBoard(t, s, "b1", "To Do")

	_, err := s.db.Exec(`INSERT INTO tasks (id, board_id, column_id) VALUES ('t1', 'b1', NULL)`)
	assert.Error(t, err)
}

func TestCreateTask_ShiftsPositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		_, err := s.CreateTask(ctx, model.Task{ID: id, Position: i})
		require.NoError(t, err)
	}
	_, err := s.CreateTask(ctx, model.Task{ID: "first", Position: 0})
	require.NoError(t, err)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)

	var ids []string
	var positions []int
	for _, task := range state.StandaloneTasks {
		ids = append(ids, task.ID)
		positions = append(positions, task.Position)
	}
	assert.Equal(t, []string{"first", "a", "b", "c"}, ids)
	assert.Equal(t, []int{0, 1, 2, 3}, positions)
}

func TestUpdateTask_Fields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", Heading: "Old", Description: "keep"})
	require.NoError(t, err)

	err = s.UpdateTask(ctx, "t1", model.TaskUpdate{
		Heading:   ptr("New"),
		Priority:  ptr(model.PriorityHigh),
		Tags:      &model.StringList{"x"},
		Completed: ptr(true),
	})
	require.NoError(t, err)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	task := findTask(t, state, "t1")
	assert.Equal(t, "New", task.Heading)
	assert.Equal(t, "keep", task.Description)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.StringList{"x"}, task.Tags)
	assert.True(t, task.Completed)
}

func TestUpdateTask_UnknownIDIsNoop(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTask(context.Background(), "missing", model.TaskUpdate{Heading: ptr("x")})
	assert.NoError(t, err)
}

func TestUpdateTask_TimelineAppendsOnlyNewEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []model.TimelineEntry{
		{Action: "Created", Timestamp: "2024-03-01T09:00:00.000Z"},
		{Action: "Edited", Timestamp: "2024-03-01T09:01:00.000Z"},
		{Action: "Tagged", Timestamp: "2024-03-01T09:02:00.000Z"},
		{Action: "Commented", Timestamp: "2024-03-01T09:03:00.000Z"},
		{Action: "Completed", Timestamp: "2024-03-01T09:04:00.000Z"},
	}

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", Timeline: entries[:2]})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTask(ctx, "t1", model.TaskUpdate{Timeline: entries}))
	assert.Equal(t, 5, countRows(t, s, "SELECT COUNT(*) FROM timeline_entries WHERE task_id = 't1'"))

	// Sending the same timeline again adds nothing.
	require.NoError(t, s.UpdateTask(ctx, "t1", model.TaskUpdate{Timeline: entries}))
	assert.Equal(t, 5, countRows(t, s, "SELECT COUNT(*) FROM timeline_entries WHERE task_id = 't1'"))

	// A shorter timeline never truncates history.
	require.NoError(t, s.UpdateTask(ctx, "t1", model.TaskUpdate{Timeline: entries[:1]}))
	assert.Equal(t, 5, countRows(t, s, "SELECT COUNT(*) FROM timeline_entries WHERE task_id = 't1'"))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, findTask(t, state, "t1").Timeline)
}

func TestUpdateTask_ExtendedDataReplacesPresentCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{
		ID: "t1",
		ExtendedData: model.ExtendedData{
			Checklist: model.ChecklistItems{{ID: "c1", Text: "one"}},
			Comments:  []model.Comment{{ID: "m1", Text: "keep me"}},
		},
	})
	require.NoError(t, err)

	err = s.UpdateTask(ctx, "t1", model.TaskUpdate{
		ExtendedData: &model.ExtendedData{
			Checklist:   model.ChecklistItems{{ID: "c2", Text: "two"}, {ID: "c3", Text: "three"}},
			Attachments: []model.Attachment{{ID: "a1", URL: "https://example.com"}},
		},
	})
	require.NoError(t, err)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	ext := findTask(t, state, "t1").ExtendedData
	assert.Equal(t, model.ChecklistItems{{ID: "c2", Text: "two"}, {ID: "c3", Text: "three"}}, ext.Checklist)
	assert.Len(t, ext.Attachments, 1)
	require.Len(t, ext.Comments, 1)
	assert.Equal(t, "keep me", ext.Comments[0].Text)
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM checklists WHERE task_id = 't1'"))

	// An empty checklist removes it.
	err = s.UpdateTask(ctx, "t1", model.TaskUpdate{
		ExtendedData: &model.ExtendedData{Checklist: model.ChecklistItems{}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM checklists WHERE task_id = 't1'"))
}

func TestDeleteTask_CascadesAndArchives(t *testing.T) {
	s := newTestStore(t)
	seedBoard(t, s, "b1", "To Do")
	fixClock(t, s, "2024-03-05T12:00:00Z")
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{
		ID:       "t1",
		BoardID:  ptr("b1"),
		ColumnID: ptr("b1/To Do"),
		Heading:  "Doomed",
		Timeline: []model.TimelineEntry{{Action: "Created"}},
		ExtendedData: model.ExtendedData{
			Checklist:   model.ChecklistItems{{ID: "c1"}},
			Attachments: []model.Attachment{{ID: "a1", URL: "u"}},
			Comments:    []model.Comment{{ID: "m1"}},
		},
	})
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, model.Note{ID: "n1", TaskIDs: []string{"t1"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, "t1"))

	for _, table := range []string{"tasks", "timeline_entries", "checklists", "attachments", "comments", "note_tasks"} {
		assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM "+table), table)
	}
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM notes"))

	deleted, err := s.GetDeletedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "b1", *deleted[0].BoardID)
	assert.Equal(t, "b1", deleted[0].BoardName)
	assert.Equal(t, "To Do", deleted[0].ColumnTitle)
	assert.Equal(t, "2024-03-05T12:00:00.000Z", deleted[0].DeletedAt)

	var snapshot model.Task
	require.NoError(t, json.Unmarshal(deleted[0].Task, &snapshot))
	assert.Equal(t, "Doomed", snapshot.Heading)
	assert.Len(t, snapshot.ExtendedData.Attachments, 1)
}

func TestDeleteTask_UnknownIDIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteTask(ctx, "missing"))

	deleted, err := s.GetDeletedTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestMoveTask_BetweenColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedBoard(t, s, "sprint", "To Do", "Done")
	_, err := s.CreateTask(ctx, model.Task{
		ID:       "t1",
		BoardID:  ptr("sprint"),
		ColumnID: ptr("sprint/To Do"),
		Heading:  "Write proposal",
		Position: 0,
		Timeline: []model.TimelineEntry{{Action: "Created"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.MoveTask(ctx, "t1", ptr("sprint"), ptr("sprint/Done"), 0))
	require.NoError(t, s.UpdateTask(ctx, "t1", model.TaskUpdate{Status: ptr("Done")}))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	columns := state.Boards[0].Columns
	assert.Empty(t, columns[0].Tasks)
	require.Len(t, columns[1].Tasks, 1)

	task := columns[1].Tasks[0]
	assert.Equal(t, "Done", task.Status)
	assert.Equal(t, "sprint/Done", *task.ColumnID)
	require.Len(t, task.Timeline, 2)
	assert.Equal(t, "Moved to Done", task.Timeline[1].Action)
}

func TestMoveTask_RenumbersPositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedBoard(t, s, "b1", "A", "B")
	for i, id := range []string{"a0", "a1", "a2"} {
		_, err := s.CreateTask(ctx, model.Task{ID: id, BoardID: ptr("b1"), ColumnID: ptr("b1/A"), Position: i})
		require.NoError(t, err)
	}
	for i, id := range []string{"b0", "b1"} {
		_, err := s.CreateTask(ctx, model.Task{ID: id, BoardID: ptr("b1"), ColumnID: ptr("b1/B"), Position: i})
		require.NoError(t, err)
	}

	require.NoError(t, s.MoveTask(ctx, "a0", ptr("b1"), ptr("b1/B"), 1))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)

	positions := func(tasks []model.Task) map[string]int {
		out := make(map[string]int)
		for _, task := range tasks {
			out[task.ID] = task.Position
		}
		return out
	}
	assert.Equal(t, map[string]int{"a1": 0, "a2": 1}, positions(state.Boards[0].Columns[0].Tasks))
	assert.Equal(t, map[string]int{"b0": 0, "a0": 1, "b1": 2}, positions(state.Boards[0].Columns[1].Tasks))
}

func TestMoveTask_ToStandalone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedBoard(t, s, "b1", "To Do")
	_, err := s.CreateTask(ctx, model.Task{ID: "t1", BoardID: ptr("b1"), ColumnID: ptr("b1/To Do")})
	require.NoError(t, err)

	require.NoError(t, s.MoveTask(ctx, "t1", nil, nil, 0))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, state.StandaloneTasks, 1)
	task := state.StandaloneTasks[0]
	assert.Nil(t, task.BoardID)
	assert.Nil(t, task.ColumnID)
	require.Len(t, task.Timeline, 1)
	assert.Equal(t, "Moved to standalone tasks", task.Timeline[0].Action)

	assert.ErrorIs(t, s.MoveTask(ctx, "t1", ptr("b1"), nil, 0), ErrInvalidPlacement)
}

func TestGetBoards_MalformedTagsReadAsEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "t1"})
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE tasks SET tags = '{not json' WHERE id = 't1'")
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO checklists (id, task_id, items) VALUES ('c1', 't1', 'garbage')`)
	require.NoError(t, err)

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	task := findTask(t, state, "t1")
	assert.Equal(t, model.StringList{}, task.Tags)
	assert.Equal(t, model.ChecklistItems{}, task.ExtendedData.Checklist)

	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tags":[]`)
}

func TestGetDueTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "due", DueDate: "2024-03-02T10:00:00Z"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.Task{ID: "done", DueDate: "2024-03-02T10:00:00Z", Completed: true})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, model.Task{ID: "undated"})
	require.NoError(t, err)

	tasks, err := s.GetDueTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "due", tasks[0].ID)
}

func TestGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", Heading: "Find me", Tags: model.StringList{"a"}})
	require.NoError(t, err)

	task, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Find me", task.Heading)
	assert.Equal(t, model.StringList{"a"}, task.Tags)

	task, err = s.GetTask(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
}
