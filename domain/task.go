package domain

import "time"

// TaskStatus identifies the board column a task lives in. Stored values are
// stable tokens; display labels come from the board config.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// AllStatuses lists every board column in display order.
var AllStatuses = []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether the status is one of the four fixed columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority is the urgency bucket shown on a card.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Attachment references a file blob stored alongside a task.
type Attachment struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	BlobKey   string    `json:"blobKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoiceNote references a recorded audio blob attached to a task.
type VoiceNote struct {
	ID         string    `json:"id"`
	BlobKey    string    `json:"blobKey"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Note is a free-text comment left on a task.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task represents a single board item.
type Task struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	DueDate       *time.Time   `json:"dueDate,omitempty"`
	Status        TaskStatus   `json:"status"`
	Priority      TaskPriority `json:"priority"`
	AssigneeIDs   []string     `json:"assigneeIds"`
	ResponsibleID string       `json:"responsibleId"`
	Attachments   []Attachment `json:"attachments"`
	VoiceNotes    []VoiceNote  `json:"voiceNotes"`
	Notes         []Note       `json:"notes"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	CreatorID     string       `json:"creatorId"`
	UpdatedBy     string       `json:"updatedBy,omitempty"`
	IsArchived    bool         `json:"isArchived,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
}

// HasAssignee reports whether the given member is among the task's assignees.
func (t *Task) HasAssignee(memberID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// Normalize repairs the assignee set so the responsible member is always
// included, preserving the existing order.
func (t *Task) Normalize() {
	if t.ResponsibleID == "" || t.HasAssignee(t.ResponsibleID) {
		return
	}
	t.AssigneeIDs = append(t.AssigneeIDs, t.ResponsibleID)
}

// Validate checks the fields a task must carry before any write is attempted.
func (t *Task) Validate() error {
	if t.Title == "" {
		return Validation("title is required")
	}
	if t.ResponsibleID == "" {
		return Validation("responsible member is required")
	}
	if !t.Status.Valid() {
		return Validation("unknown status")
	}
	if !t.Priority.Valid() {
		return Validation("unknown priority")
	}
	return nil
}

// BlobKeys returns the storage keys of every blob owned by the task.
func (t *Task) BlobKeys() []string {
	keys := make([]string, 0, len(t.Attachments)+len(t.VoiceNotes))
	for _, a := range t.Attachments {
		keys = append(keys, a.BlobKey)
	}
	for _, v := range t.VoiceNotes {
		keys = append(keys, v.BlobKey)
	}
	return keys
}
