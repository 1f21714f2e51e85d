package store

import (
	"context"
	"encoding/json"

	"github.com/nhle/taskboard/internal/model"
)

// Store defines the persistence interface for boards, tasks, the deleted
// task archive, notifications, settings and notes.
type Store interface {
	// === Boards ===

	GetBoards(ctx context.Context) (*model.BoardState, error)
	SaveBoards(ctx context.Context, state model.BoardState) error

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (string, error)
	UpdateTask(ctx context.Context, id string, u model.TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error
	MoveTask(ctx context.Context, id string, boardID, columnID *string, position int) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetDueTasks(ctx context.Context) ([]model.Task, error)

	// === Deleted tasks ===

	GetDeletedTasks(ctx context.Context) ([]model.DeletedTask, error)
	SaveDeletedTasks(ctx context.Context, deleted []model.DeletedTask) error

	// === Notifications ===

	GetNotifications(ctx context.Context) ([]model.Notification, error)
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	HasBeenSent(ctx context.Context, taskID, triggerType string) (bool, error)

	// === Settings ===

	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error

	// === Notes ===

	GetNotes(ctx context.Context) ([]model.Note, error)
	GetNoteContent(ctx context.Context, id string) (json.RawMessage, error)
	SaveNotes(ctx context.Context, notes []model.Note) error
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	UpdateNote(ctx context.Context, id string, u model.NoteUpdate) error
	DeleteNote(ctx context.Context, id string) error
	LinkNoteToTask(ctx context.Context, noteID, taskID string) error
	UnlinkNoteFromTask(ctx context.Context, noteID, taskID string) error

	Durable() bool
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
