package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/ports"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client is a typed HTTP client for the TaskDeck API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates an API client from client configuration.
func New(cfg config.ClientConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SetToken attaches a bearer token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges the credential pair for a session.
func (c *Client) Login(ctx context.Context, username, password string) (*ports.LoginResponse, error) {
	req := ports.LoginRequest{Username: username, Password: password}
	var resp ports.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTasks fetches the full task sequence.
func (c *Client) ListTasks(ctx context.Context) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task and returns the server's record of it.
func (c *Client) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask sends a partial update and returns the merged record.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch entities.TaskPatch) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
