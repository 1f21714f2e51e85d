package model

// Task priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultStatus is assigned to tasks created without a status.
const DefaultStatus = "To Do"

// DefaultChecklistTitle names the single checklist a task owns.
const DefaultChecklistTitle = "Checklist"

// Task is a unit of work, either placed in a board column or standalone
// (BoardID and ColumnID both nil).
type Task struct {
	ID          string     `json:"id" validate:"required"`
	BoardID     *string    `json:"boardId"`
	ColumnID    *string    `json:"columnId"`
	Heading     string     `json:"heading"`
	TLDR        string     `json:"tldr"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Tags        StringList `json:"tags"`
	DueDate     string     `json:"dueDate"`
	Status      string     `json:"status"`
	Completed   bool       `json:"completed"`
	CreatedAt   string     `json:"created_at"`
	Position    int        `json:"position"`

	// Timeline is append-only; entries are never rewritten once stored.
	Timeline     []TimelineEntry `json:"timeline" validate:"dive"`
	ExtendedData ExtendedData    `json:"extendedData"`
}

// IsStandalone reports whether the task is not attached to any board.
func (t Task) IsStandalone() bool {
	return t.BoardID == nil && t.ColumnID == nil
}

// TimelineEntry records one action in a task's history.
type TimelineEntry struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// ExtendedData groups the client-owned sub-collections of a task.
// A nil slice means "not provided"; an empty slice means "none".
type ExtendedData struct {
	Checklist   ChecklistItems `json:"checklist" validate:"dive"`
	Attachments []Attachment   `json:"attachments" validate:"dive"`
	Comments    []Comment      `json:"comments" validate:"dive"`
}

// ChecklistItem is a single entry in a task's checklist.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Attachment links an external resource to a task.
type Attachment struct {
	ID         string `json:"id" validate:"required"`
	URL        string `json:"url" validate:"required"`
	Title      string `json:"title"`
	CoverImage bool   `json:"coverImage"`
	CreatedAt  string `json:"createdAt"`
}

// Comment is a free-text remark on a task.
type Comment struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// TaskUpdate is a field-level patch. Nil fields are left untouched.
type TaskUpdate struct {
	Heading     *string     `json:"heading"`
	TLDR        *string     `json:"tldr"`
	Description *string     `json:"description"`
	Priority    *string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Tags        *StringList `json:"tags"`
	DueDate     *string     `json:"dueDate"`
	Status      *string     `json:"status"`
	Completed   *bool       `json:"completed"`

	// Timeline is the caller's full timeline; only entries beyond the
	// stored count are appended.
	Timeline     []TimelineEntry `json:"timeline" validate:"dive"`
	ExtendedData *ExtendedData   `json:"extendedData"`
}
