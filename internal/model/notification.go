package model

import (
	"fmt"
	"time"
)

// Reminder trigger types, named after how long before the due date
// they fire.
const (
	Trigger15m = "15m"
	Trigger1h  = "1h"
	Trigger24h = "24h"
)

// ReminderTriggers lists trigger types from the tightest window outward.
var ReminderTriggers = []string{Trigger15m, Trigger1h, Trigger24h}

// TriggerWindow returns how long before the due date a trigger fires.
func TriggerWindow(trigger string) (time.Duration, bool) {
	switch trigger {
	case Trigger15m:
		return 15 * time.Minute, true
	case Trigger1h:
		return time.Hour, true
	case Trigger24h:
		return 24 * time.Hour, true
	}
	return 0, false
}

// Notification is a reminder surfaced to the user about a task.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// TaskID links this notification to the task it reminds about.
	TaskID string `json:"taskId"`

	Title string `json:"title"`
	Body  string `json:"body"`

	// TriggerType is one of the Trigger* constants.
	TriggerType string `json:"triggerType"`

	// SentAt is when the notification was created.
	SentAt string `json:"sentAt"`

	// ReadAt is nil while the notification is unread.
	ReadAt *string `json:"readAt"`
}

// ReminderText builds the title and body for a reminder about heading.
func ReminderText(trigger, heading string) (title, body string) {
	if heading == "" {
		heading = "Untitled task"
	}
	switch trigger {
	case Trigger15m:
		return "Due in 15 minutes", fmt.Sprintf("%q is due in 15 minutes", heading)
	case Trigger1h:
		return "Due in 1 hour", fmt.Sprintf("%q is due in 1 hour", heading)
	case Trigger24h:
		return "Due tomorrow", fmt.Sprintf("%q is due in 24 hours", heading)
	}
	return "Reminder", fmt.Sprintf("%q needs your attention", heading)
}
