package ports

import (
	"context"

	"github.com/taskdeck/core/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// TaskService interface for task store operations
type TaskService interface {
	ListTasks(ctx context.Context) ([]entities.Task, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, id int64, patch entities.TaskPatch) (*entities.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Request/Response Types

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  *entities.User `json:"user"`
}

// CreateTaskRequest carries the caller-supplied task fields. Title and
// description are validated by the client form, not by the store.
type CreateTaskRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description" validate:"required"`
	Status      entities.TaskStatus `json:"status,omitempty"`
}

// Claims are the verified contents of a session token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
