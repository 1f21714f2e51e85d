package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/model"
)

type notificationRow struct {
	ID          string         `db:"id"`
	TaskID      string         `db:"task_id"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	TriggerType string         `db:"trigger_type"`
	SentAt      string         `db:"sent_at"`
	ReadAt      sql.NullString `db:"read_at"`
}

// GetNotifications returns all notifications, newest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, task_id, title, body, trigger_type, sent_at, read_at
		FROM notifications ORDER BY sent_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n := model.Notification{
			ID:          r.ID,
			TaskID:      r.TaskID,
			Title:       r.Title,
			Body:        r.Body,
			TriggerType: r.TriggerType,
			SentAt:      r.SentAt,
		}
		if r.ReadAt.Valid {
			readAt := r.ReadAt.String
			n.ReadAt = &readAt
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// CreateNotification stores an unread notification sent now and returns it.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.SentAt = s.timestamp()
	n.ReadAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, task_id, title, body, trigger_type, sent_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		n.ID, n.TaskID, n.Title, n.Body, n.TriggerType, n.SentAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("creating notification: %w", err)
	}
	return n, nil
}

// MarkNotificationRead stamps a notification as read now.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = ? WHERE id = ?", s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// HasBeenSent reports whether a notification for taskID with triggerType
// already exists. Callers check it before creating reminders.
func (s *SQLiteStore) HasBeenSent(ctx context.Context, taskID, triggerType string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM notifications WHERE task_id = ? AND trigger_type = ?`,
		taskID, triggerType)
	if err != nil {
		return false, fmt.Errorf("checking notification for task %s: %w", taskID, err)
	}
	return n > 0, nil
}
