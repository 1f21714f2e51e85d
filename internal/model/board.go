package model

// Board is a named kanban board owning an ordered list of columns.
type Board struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name"`
	CreatedAt string   `json:"createdAt"`
	Columns   []Column `json:"columns" validate:"dive"`
}

// Column is an ordered lane within a board. Its position is the index
// in Board.Columns; tasks are ordered by their index in Tasks.
type Column struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks" validate:"dive"`
}

// BoardState is the full board tree as exchanged with the UI:
// every board with hydrated columns and tasks, the standalone task list,
// and the currently selected board.
type BoardState struct {
	Boards          []Board `json:"boards" validate:"dive"`
	StandaloneTasks []Task  `json:"standaloneTasks" validate:"dive"`
	ActiveBoardID   *string `json:"activeBoardId"`
}
