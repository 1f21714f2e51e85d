package model

import "encoding/json"

// DeletedTask is an archival snapshot of a task taken when it was deleted.
// BoardID and ColumnID may reference entities that no longer exist.
type DeletedTask struct {
	BoardID     *string `json:"boardId"`
	BoardName   string  `json:"boardName"`
	ColumnID    *string `json:"columnId"`
	ColumnTitle string  `json:"columnTitle"`

	// Task is the serialized task as it was at deletion time. It is kept
	// verbatim so the client can restore it without loss.
	Task json.RawMessage `json:"task"`

	DeletedAt string `json:"deletedAt"`
}
