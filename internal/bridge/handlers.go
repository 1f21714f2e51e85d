package bridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// === Boards ===

func (b *Bridge) getBoards(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.store.GetBoards(ctx)
}

func (b *Bridge) saveBoards(ctx context.Context, payload json.RawMessage) (any, error) {
	var state model.BoardState
	if err := b.decode("boards.saveAll", payload, &state); err != nil {
		return nil, err
	}
	return nil, b.store.SaveBoards(ctx, state)
}

// === Deleted tasks ===

func (b *Bridge) getDeletedTasks(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.store.GetDeletedTasks(ctx)
}

func (b *Bridge) saveDeletedTasks(ctx context.Context, payload json.RawMessage) (any, error) {
	var deleted []model.DeletedTask
	if err := b.decode("deletedTasks.saveAll", payload, &deleted); err != nil {
		return nil, err
	}
	return nil, b.store.SaveDeletedTasks(ctx, deleted)
}

// === Settings ===

func (b *Bridge) getSettings(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.store.GetSettings(ctx)
}

func (b *Bridge) saveSettings(ctx context.Context, payload json.RawMessage) (any, error) {
	var settings model.Settings
	if err := b.decode("settings.saveAll", payload, &settings); err != nil {
		return nil, err
	}
	return nil, b.store.SaveSettings(ctx, settings)
}

// === Tasks ===

func (b *Bridge) createTask(ctx context.Context, payload json.RawMessage) (any, error) {
	var req createTaskRequest
	if err := b.decode("task.create", payload, &req); err != nil {
		return nil, err
	}
	task := req.toTask()
	if (task.BoardID == nil) != (task.ColumnID == nil) {
		return nil, &ValidationError{Op: "task.create", Err: store.ErrInvalidPlacement}
	}

	id, err := b.store.CreateTask(ctx, task)
	if err != nil {
		return nil, placementError("task.create", err)
	}
	return createTaskResult{ID: id}, nil
}

func (b *Bridge) updateTask(ctx context.Context, payload json.RawMessage) (any, error) {
	var req updateTaskRequest
	if err := b.decode("task.update", payload, &req); err != nil {
		return nil, err
	}
	return nil, b.store.UpdateTask(ctx, req.TaskID, *req.Updates)
}

func (b *Bridge) deleteTask(ctx context.Context, payload json.RawMessage) (any, error) {
	id, err := b.decodeID("task.delete", payload)
	if err != nil {
		return nil, err
	}
	return nil, b.store.DeleteTask(ctx, id)
}

func (b *Bridge) moveTask(ctx context.Context, payload json.RawMessage) (any, error) {
	var req moveTaskRequest
	if err := b.decode("task.move", payload, &req); err != nil {
		return nil, err
	}
	boardID, columnID := req.placement()
	return nil, placementError("task.move", b.store.MoveTask(ctx, req.TaskID, boardID, columnID, *req.NewPosition))
}

// === Notifications ===

func (b *Bridge) getNotifications(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.store.GetNotifications(ctx)
}

func (b *Bridge) createNotification(ctx context.Context, payload json.RawMessage) (any, error) {
	var req createNotificationRequest
	if err := b.decode("notifications.create", payload, &req); err != nil {
		return nil, err
	}

	title, body := req.Title, req.Body
	if title == "" || body == "" {
		var heading string
		task, err := b.store.GetTask(ctx, req.TaskID)
		if err != nil {
			return nil, err
		}
		if task != nil {
			heading = task.Heading
		}
		derivedTitle, derivedBody := model.ReminderText(req.TriggerType, heading)
		if title == "" {
			title = derivedTitle
		}
		if body == "" {
			body = derivedBody
		}
	}

	return b.store.CreateNotification(ctx, model.Notification{
		TaskID:      req.TaskID,
		Title:       title,
		Body:        body,
		TriggerType: req.TriggerType,
	})
}

func (b *Bridge) markNotificationRead(ctx context.Context, payload json.RawMessage) (any, error) {
	id, err := b.decodeID("notifications.markRead", payload)
	if err != nil {
		return nil, err
	}
	return nil, b.store.MarkNotificationRead(ctx, id)
}

func (b *Bridge) hasBeenSent(ctx context.Context, payload json.RawMessage) (any, error) {
	var req hasBeenSentRequest
	if err := b.decode("notifications.hasBeenSent", payload, &req); err != nil {
		return nil, err
	}
	return b.store.HasBeenSent(ctx, req.TaskID, req.TriggerType)
}

// === Notes ===

func (b *Bridge) getNotes(ctx context.Context, _ json.RawMessage) (any, error) {
	return b.store.GetNotes(ctx)
}

func (b *Bridge) createNote(ctx context.Context, payload json.RawMessage) (any, error) {
	var note model.Note
	if err := b.decode("notes.create", payload, &note); err != nil {
		return nil, err
	}
	return b.store.CreateNote(ctx, note)
}

func (b *Bridge) updateNote(ctx context.Context, payload json.RawMessage) (any, error) {
	var req updateNoteRequest
	if err := b.decode("notes.update", payload, &req); err != nil {
		return nil, err
	}
	return nil, b.store.UpdateNote(ctx, req.NoteID, *req.Updates)
}

func (b *Bridge) deleteNote(ctx context.Context, payload json.RawMessage) (any, error) {
	id, err := b.decodeID("notes.delete", payload)
	if err != nil {
		return nil, err
	}
	return nil, noteIDError("notes.delete", b.store.DeleteNote(ctx, id))
}

func (b *Bridge) linkNoteToTask(ctx context.Context, payload json.RawMessage) (any, error) {
	var req noteLinkRequest
	if err := b.decode("notes.linkToTask", payload, &req); err != nil {
		return nil, err
	}
	return nil, b.store.LinkNoteToTask(ctx, req.NoteID, req.TaskID)
}

func (b *Bridge) unlinkNoteFromTask(ctx context.Context, payload json.RawMessage) (any, error) {
	var req noteLinkRequest
	if err := b.decode("notes.unlinkFromTask", payload, &req); err != nil {
		return nil, err
	}
	return nil, b.store.UnlinkNoteFromTask(ctx, req.NoteID, req.TaskID)
}

func (b *Bridge) getNoteContent(ctx context.Context, payload json.RawMessage) (any, error) {
	id, err := b.decodeID("notes.getContent", payload)
	if err != nil {
		return nil, err
	}
	content, err := b.store.GetNoteContent(ctx, id)
	if err != nil {
		return nil, noteIDError("notes.getContent", err)
	}
	return content, nil
}

func (b *Bridge) saveNotes(ctx context.Context, payload json.RawMessage) (any, error) {
	var notes []model.Note
	if err := b.decode("notes.saveAll", payload, &notes); err != nil {
		return nil, err
	}
	return nil, b.store.SaveNotes(ctx, notes)
}

// === Store ===

func (b *Bridge) status(context.Context, json.RawMessage) (any, error) {
	return statusResult{Durable: b.store.Durable()}, nil
}

// noteIDError reports a rejected note id as a validation failure.
func noteIDError(op string, err error) error {
	if errors.Is(err, store.ErrInvalidNoteID) {
		return &ValidationError{Op: op, Err: err}
	}
	return err
}

// placementError reports a board/column mismatch as a validation failure.
func placementError(op string, err error) error {
	if errors.Is(err, store.ErrInvalidPlacement) {
		return &ValidationError{Op: op, Err: err}
	}
	return err
}
