package client

import (
	"sync"

	"github.com/taskdeck/core/internal/domain/entities"
)

// TaskView is the client-side cache of the task list plus the transient
// request-lifecycle flags the dashboard renders from. The cache is purely
// reactive: it only ever stores records the server returned.
type TaskView struct {
	mu      sync.Mutex
	tasks   []entities.Task
	loading bool
	err     string
}

// NewTaskView returns an empty view.
func NewTaskView() *TaskView {
	return &TaskView{}
}

// SetTasks replaces the cached sequence wholesale.
func (v *TaskView) SetTasks(tasks []entities.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = append(v.tasks[:0:0], tasks...)
}

// AddTask appends a server-returned task to the cache.
func (v *TaskView) AddTask(task entities.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = append(v.tasks, task)
}

// RemoveTask drops the task with the given id. The caller is responsible
// for having already deleted it server-side.
func (v *TaskView) RemoveTask(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	remaining := v.tasks[:0:0]
	for _, t := range v.tasks {
		if t.ID != id {
			remaining = append(remaining, t)
		}
	}
	v.tasks = remaining
}

// ApplyTask replaces the cached record matching the task's id with the
// authoritative copy the server returned, keeping its position.
func (v *TaskView) ApplyTask(task entities.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, t := range v.tasks {
		if t.ID == task.ID {
			v.tasks[i] = task
			return
		}
	}
}

// SetLoading flags an outstanding list fetch.
func (v *TaskView) SetLoading(loading bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = loading
}

// SetError records the last failure message. An empty string clears it.
func (v *TaskView) SetError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = message
}

// Tasks returns a copy of the cached sequence.
func (v *TaskView) Tasks() []entities.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append(v.tasks[:0:0], v.tasks...)
}

// Loading reports whether a list fetch is outstanding.
func (v *TaskView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Error returns the last failure message, empty when none.
func (v *TaskView) Error() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Filter returns the subset passing the filter, order preserved.
func (v *TaskView) Filter(filter entities.StatusFilter) []entities.Task {
	v.mu.Lock()
	defer v.mu.Unlock()

	matched := make([]entities.Task, 0, len(v.tasks))
	for _, t := range v.tasks {
		if filter.Matches(t.Status) {
			matched = append(matched, t)
		}
	}
	return matched
}

// Counts are the dashboard stats, always computed over the unfiltered cache.
type Counts struct {
	Total     int
	Pending   int
	Completed int
}

// Counts computes dashboard stats from the unfiltered cache.
func (v *TaskView) Counts() Counts {
	v.mu.Lock()
	defer v.mu.Unlock()

	counts := Counts{Total: len(v.tasks)}
	for _, t := range v.tasks {
		switch t.Status {
		case entities.TaskStatusPending:
			counts.Pending++
		case entities.TaskStatusCompleted:
			counts.Completed++
		}
	}
	return counts
}
