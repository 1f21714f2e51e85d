package model

import "encoding/json"

// Note is a free-form document. Only metadata lives in the database;
// the body is held by a separate content store and is loaded on demand.
type Note struct {
	ID        string   `json:"id" validate:"required,excludesall=/\\"`
	Title     string   `json:"title"`
	TaskIDs   []string `json:"taskIds"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`

	// Content is null unless the caller loaded or edited the body.
	Content json.RawMessage `json:"content"`
}

// HasContent reports whether the note carries a body to persist.
func (n Note) HasContent() bool {
	return !IsNullJSON(n.Content)
}

// NoteUpdate is a partial note update. Nil fields are left untouched.
type NoteUpdate struct {
	Title   *string         `json:"title"`
	Content json.RawMessage `json:"content"`
	TaskIDs *[]string       `json:"taskIds"`
}
