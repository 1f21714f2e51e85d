package bridge

import (
	"github.com/nhle/taskboard/internal/model"
)

// createTaskRequest is a task.create payload. The fields the UI must
// always send are shadowed with pointers so that presence can be checked.
type createTaskRequest struct {
	model.Task

	Heading   *string `json:"heading" validate:"required"`
	Status    *string `json:"status" validate:"required"`
	CreatedAt *string `json:"created_at" validate:"required"`
	Position  *int    `json:"position" validate:"required,min=0"`
}

func (r createTaskRequest) toTask() model.Task {
	t := r.Task
	t.Heading = *r.Heading
	t.Status = *r.Status
	t.CreatedAt = *r.CreatedAt
	t.Position = *r.Position
	return t
}

type updateTaskRequest struct {
	TaskID  string            `json:"taskId" validate:"required"`
	Updates *model.TaskUpdate `json:"updates" validate:"required"`
}

type moveTaskRequest struct {
	TaskID       string  `json:"taskId" validate:"required"`
	NewBoardID   *string `json:"newBoardId" validate:"required_unless=IsStandalone true"`
	NewColumnID  *string `json:"newColumnId" validate:"required_unless=IsStandalone true"`
	NewPosition  *int    `json:"newPosition" validate:"required,min=0"`
	IsStandalone bool    `json:"isStandalone"`
}

// placement returns the target board and column, both nil for the
// standalone list.
func (r moveTaskRequest) placement() (boardID, columnID *string) {
	if r.IsStandalone {
		return nil, nil
	}
	return r.NewBoardID, r.NewColumnID
}

type createNotificationRequest struct {
	TaskID      string `json:"taskId" validate:"required"`
	TriggerType string `json:"triggerType" validate:"required,oneof=15m 1h 24h"`

	// Title and Body override the text derived from the task.
	Title string `json:"title"`
	Body  string `json:"body"`
}

type hasBeenSentRequest struct {
	TaskID      string `json:"taskId" validate:"required"`
	TriggerType string `json:"triggerType" validate:"required"`
}

type updateNoteRequest struct {
	NoteID  string            `json:"noteId" validate:"required,excludesall=/\\"`
	Updates *model.NoteUpdate `json:"updates" validate:"required"`
}

type noteLinkRequest struct {
	NoteID string `json:"noteId" validate:"required"`
	TaskID string `json:"taskId" validate:"required"`
}

type createTaskResult struct {
	ID string `json:"id"`
}

type statusResult struct {
	Durable bool `json:"durable"`
}
