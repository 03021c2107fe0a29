package services

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// TaskService handles task store operations
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, appLogger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   appLogger,
		now:      time.Now,
	}
}

// ListTasks returns the full task sequence in insertion order.
func (s *TaskService) ListTasks(ctx context.Context) ([]entities.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask creates a new task. The store assigns id and createdAt; status
// defaults to pending when unspecified. A supplied status must be one of the
// enumerated values so the stored sequence never holds anything else.
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	status := req.Status
	if status == "" {
		status = entities.TaskStatusPending
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidStatus, req.Status)
	}

	task := entities.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("Task created", "task_id", created.ID, "title", created.Title)

	return &created, nil
}

// UpdateTask merges the patch over the task with the given id.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch entities.TaskPatch) (*entities.Task, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidStatus, *patch.Status)
	}

	updated, err := s.taskRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Info("Task updated", "task_id", updated.ID, "status", updated.Status)

	return &updated, nil
}

// DeleteTask removes the task with the given id.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("Task deleted", "task_id", id)

	return nil
}
