package client

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// Generic user-facing failure messages. Nothing more specific reaches the
// presentation layer.
const (
	msgFetchFailed  = "Failed to fetch tasks"
	msgAddFailed    = "Failed to add task"
	msgUpdateFailed = "Failed to update task"
	msgDeleteFailed = "Failed to delete task"
)

// Dashboard sequences user intents into API calls and view updates.
type Dashboard struct {
	api      *Client
	session  *SessionState
	view     *TaskView
	validate *validator.Validate
	logger   *logger.Logger
	filter   entities.StatusFilter
}

// NewDashboard creates a dashboard controller over an authenticated client.
func NewDashboard(api *Client, session *SessionState, appLogger *logger.Logger) *Dashboard {
	return &Dashboard{
		api:      api,
		session:  session,
		view:     NewTaskView(),
		validate: validator.New(),
		logger:   appLogger,
		filter:   entities.FilterAll,
	}
}

// View exposes the task view state for rendering.
func (d *Dashboard) View() *TaskView {
	return d.view
}

// Session returns the authenticated session the dashboard runs under.
func (d *Dashboard) Session() entities.Session {
	return d.session.Current()
}

// Refresh reloads the task list. The loading flag is cleared whatever the
// outcome.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.view.SetLoading(true)
	defer d.view.SetLoading(false)

	tasks, err := d.api.ListTasks(ctx)
	if err != nil {
		d.logger.Error("Fetch tasks failed", "error", err)
		d.view.SetError(msgFetchFailed)
		return fmt.Errorf("%s: %w", msgFetchFailed, err)
	}

	d.view.SetTasks(tasks)
	d.view.SetError("")
	return nil
}

// AddTask validates the form fields, creates the task and appends the
// server's record to the cache. Validation failures never reach the server.
func (d *Dashboard) AddTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("title and description are required: %w", err)
	}

	task, err := d.api.CreateTask(ctx, req)
	if err != nil {
		d.logger.Error("Add task failed", "error", err)
		d.view.SetError(msgAddFailed)
		return nil, fmt.Errorf("%s: %w", msgAddFailed, err)
	}

	d.view.AddTask(*task)
	d.view.SetError("")
	return task, nil
}

// UpdateTask sends a partial update and overlays the authoritative response
// into the cache.
func (d *Dashboard) UpdateTask(ctx context.Context, id int64, patch entities.TaskPatch) (*entities.Task, error) {
	task, err := d.api.UpdateTask(ctx, id, patch)
	if err != nil {
		d.logger.Error("Update task failed", "error", err, "task_id", id)
		d.view.SetError(msgUpdateFailed)
		return nil, fmt.Errorf("%s: %w", msgUpdateFailed, err)
	}

	d.view.ApplyTask(*task)
	d.view.SetError("")
	return task, nil
}

// DeleteTask removes the task server-side, then drops it from the cache.
func (d *Dashboard) DeleteTask(ctx context.Context, id int64) error {
	if err := d.api.DeleteTask(ctx, id); err != nil {
		d.logger.Error("Delete task failed", "error", err, "task_id", id)
		d.view.SetError(msgDeleteFailed)
		return fmt.Errorf("%s: %w", msgDeleteFailed, err)
	}

	d.view.RemoveTask(id)
	d.view.SetError("")
	return nil
}

// SetFilter selects the status filter. It always starts at "all" and is
// never persisted.
func (d *Dashboard) SetFilter(filter entities.StatusFilter) error {
	if !filter.IsValid() {
		return fmt.Errorf("unknown filter %q", filter)
	}
	d.filter = filter
	return nil
}

// Filter returns the selected status filter.
func (d *Dashboard) Filter() entities.StatusFilter {
	return d.filter
}

// VisibleTasks returns the cached tasks passing the selected filter.
func (d *Dashboard) VisibleTasks() []entities.Task {
	return d.view.Filter(d.filter)
}

// Counts returns dashboard stats over the unfiltered cache.
func (d *Dashboard) Counts() Counts {
	return d.view.Counts()
}
