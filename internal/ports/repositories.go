package ports

import (
	"context"

	"github.com/taskdeck/core/internal/domain/entities"
)

// TaskRepository defines the interface for task persistence. The sequence
// order returned by List is insertion order and must be preserved by Update.
type TaskRepository interface {
	List(ctx context.Context) ([]entities.Task, error)
	Create(ctx context.Context, task entities.Task) (entities.Task, error)
	Update(ctx context.Context, id int64, patch entities.TaskPatch) (entities.Task, error)
	Delete(ctx context.Context, id int64) error
}

// SessionRepository defines the interface for session persistence: the
// opaque token and the user identity, stored under separate keys so either
// can be absent independently.
type SessionRepository interface {
	SaveSession(ctx context.Context, token string, user *entities.User) error
	LoadSession(ctx context.Context) (entities.Session, error)
	ClearSession(ctx context.Context) error
}
