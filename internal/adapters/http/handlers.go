package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// MessageResponse is the flat error/info payload every failure surfaces as.
type MessageResponse struct {
	Message string `json:"message"`
}

// DeleteResponse acknowledges a successful delete.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, appLogger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      appLogger,
	}
}

// Login handles user login. A body that cannot be parsed is a server error;
// any credential mismatch, including empty fields, is a 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Login request body unparseable", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if err := c.Validate(&req); err != nil {
		// Empty username or password can never match the demo pair.
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		h.logger.Error("Login failed", "error", err, "username", req.Username)
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, response)
}

// Me returns the identity carried by the request's bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := c.Get("claims").(*ports.Claims)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	return c.JSON(http.StatusOK, entities.User{ID: claims.UserID, Username: claims.Username})
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, appLogger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      appLogger,
	}
}

// ListTasks returns the full task sequence.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context())
	if err != nil {
		h.logger.Error("List tasks failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// CreateTask creates a task from the posted fields.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidStatus) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
		}
		h.logger.Error("Create task failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create task")
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask merges the posted partial fields over an existing task.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	var patch entities.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), id, patch)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		if errors.Is(err, entities.ErrInvalidStatus) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
		}
		h.logger.Error("Update task failed", "error", err, "task_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update task")
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task by id.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Error("Delete task failed", "error", err, "task_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete task")
	}

	return c.JSON(http.StatusOK, DeleteResponse{Success: true})
}
