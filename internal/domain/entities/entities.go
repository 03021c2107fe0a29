package entities

import "errors"

// Common errors
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMalformedRequest   = errors.New("malformed request")
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// StatusFilter selects a subset of tasks by status. "all" matches everything.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterPending    StatusFilter = StatusFilter(TaskStatusPending)
	FilterInProgress StatusFilter = StatusFilter(TaskStatusInProgress)
	FilterCompleted  StatusFilter = StatusFilter(TaskStatusCompleted)
)

func (f StatusFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterPending, FilterInProgress, FilterCompleted:
		return true
	default:
		return false
	}
}

// Matches reports whether a task status passes the filter.
func (f StatusFilter) Matches(status TaskStatus) bool {
	return f == FilterAll || string(f) == string(status)
}

// Task represents a task in the system.
//
// CreatedAt stays in wire format (RFC3339 string) instead of time.Time: the
// seed record carries no timestamp at all, and the persisted sequence must
// reload to exactly the in-memory value.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   string     `json:"createdAt,omitempty"`
}

// TaskPatch is a partial task update. Nil fields are left untouched; the
// task id is never part of a patch.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// Apply overlays the patch onto a task and returns the merged copy. This is
// the single merge implementation; the store and the client cache both go
// through it.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// IsEmpty reports whether the patch carries no fields.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// User is the identity attached to a session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Session is the authenticated state held by a client: an opaque token and,
// when known, the user it belongs to. User may be absent even when a token
// is present.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// Authenticated reports whether the session holds a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
