package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func sampleState() model.BoardState {
	return model.BoardState{
		Boards: []model.Board{
			{
				ID:        "b1",
				Name:      "Sprint 1",
				CreatedAt: "2024-01-01T00:00:00.000Z",
				Columns: []model.Column{
					{ID: "c1", Title: "To Do", Tasks: []model.Task{
						{ID: "t1", Heading: "First", Position: 7},
						{ID: "t2", Heading: "Second", Position: 3},
					}},
					{ID: "c2", Title: "Done", Tasks: []model.Task{}},
				},
			},
			{
				ID:        "b2",
				Name:      "Backlog",
				CreatedAt: "2024-02-01T00:00:00.000Z",
				Columns:   []model.Column{},
			},
		},
		StandaloneTasks: []model.Task{{ID: "s1", Heading: "Loose"}},
		ActiveBoardID:   ptr("b1"),
	}
}

func TestGetBoards_Empty(t *testing.T) {
	s := newTestStore(t)

	state, err := s.GetBoards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, state.Boards)
	assert.Empty(t, state.Boards)
	assert.NotNil(t, state.StandaloneTasks)
	assert.Nil(t, state.ActiveBoardID)
}

func TestSaveBoards_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBoards(ctx, sampleState()))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, state.Boards, 2)
	assert.Equal(t, "Sprint 1", state.Boards[0].Name)
	assert.Equal(t, "Backlog", state.Boards[1].Name)
	assert.NotNil(t, state.Boards[1].Columns)

	columns := state.Boards[0].Columns
	require.Len(t, columns, 2)
	assert.Equal(t, "To Do", columns[0].Title)
	assert.Equal(t, "Done", columns[1].Title)

	tasks := columns[0].Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, 0, tasks[0].Position)
	assert.Equal(t, "t2", tasks[1].ID)
	assert.Equal(t, 1, tasks[1].Position)
	assert.Equal(t, "b1", *tasks[0].BoardID)
	assert.Equal(t, "c1", *tasks[0].ColumnID)

	require.Len(t, state.StandaloneTasks, 1)
	assert.True(t, state.StandaloneTasks[0].IsStandalone())

	require.NotNil(t, state.ActiveBoardID)
	assert.Equal(t, "b1", *state.ActiveBoardID)
}

func TestSaveBoards_ReplacesPreviousState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBoards(ctx, sampleState()))

	next := model.BoardState{
		Boards: []model.Board{{ID: "b3", Name: "Fresh", Columns: []model.Column{
			{ID: "c9", Title: "Only", Tasks: []model.Task{{ID: "t9"}}},
		}}},
	}
	require.NoError(t, s.SaveBoards(ctx, next))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, state.Boards, 1)
	assert.Equal(t, "b3", state.Boards[0].ID)
	assert.Empty(t, state.StandaloneTasks)
	assert.Nil(t, state.ActiveBoardID)
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM tasks"))
}

func TestSaveBoards_IsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBoards(ctx, sampleState()))

	broken := model.BoardState{
		Boards: []model.Board{{ID: "b9", Name: "Broken", Columns: []model.Column{
			{ID: "c9", Title: "Dupes", Tasks: []model.Task{{ID: "dup"}, {ID: "dup"}}},
		}}},
	}
	assert.Error(t, s.SaveBoards(ctx, broken))

	state, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, state.Boards, 2)
	assert.Equal(t, "b1", state.Boards[0].ID)
	assert.Len(t, state.Boards[0].Columns[0].Tasks, 2)
	assert.Len(t, state.StandaloneTasks, 1)
}

func TestSaveBoards_RemovingBoardCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := sampleState()
	st.Boards[0].Columns[0].Tasks[0].Timeline = []model.TimelineEntry{{Action: "Created"}}
	st.Boards[0].Columns[0].Tasks[0].ExtendedData.Comments = []model.Comment{{ID: "m1"}}
	require.NoError(t, s.SaveBoards(ctx, st))

	st.Boards = st.Boards[1:]
	st.ActiveBoardID = ptr("b2")
	require.NoError(t, s.SaveBoards(ctx, st))

	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM board_columns"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM tasks"))
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM timeline_entries"))
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM comments"))
}

func TestSaveBoards_KeepsNoteLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBoards(ctx, sampleState()))
	_, err := s.CreateNote(ctx, model.Note{ID: "n1", TaskIDs: []string{"t1", "s1"}})
	require.NoError(t, err)

	st := sampleState()
	st.StandaloneTasks = nil
	require.NoError(t, s.SaveBoards(ctx, st))

	notes, err := s.GetNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"t1"}, notes[0].TaskIDs)
}
