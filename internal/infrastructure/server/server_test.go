package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/internal/adapters/storage/bolt"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "TaskDeck", Environment: "test"},
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			ExpiresIn:    time.Hour,
			Issuer:       "taskdeck-test",
			DemoUsername: "test",
			DemoPassword: "test123",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "taskdeck.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv, err := New(testConfig(), store, logger.NewNop())
	require.NoError(t, err)
	return srv
}

func doRequest(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Message
}

func loginToken(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doRequest(srv, http.MethodPost, "/login", `{"username":"test","password":"test123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string        `json:"token"`
		User  entities.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("valid credentials", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/login", `{"username":"test","password":"test123"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string        `json:"token"`
			User  entities.User `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)
		require.Equal(t, int64(1), resp.User.ID)
		require.Equal(t, "test", resp.User.Username)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/login", `{"username":"test","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid credentials", decodeMessage(t, rec))
	})

	t.Run("empty credentials", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/login", `{}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/login", `{"username":`, "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Server error", decodeMessage(t, rec))
	})
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Fresh store lists the seed task.
	rec := doRequest(srv, http.MethodGet, "/tasks", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	require.Equal(t, "Sample Task", tasks[0].Title)

	// Create: status defaults to pending, id and createdAt are assigned.
	rec = doRequest(srv, http.MethodPost, "/tasks", `{"title":"A","description":"d"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.Equal(t, entities.TaskStatusPending, created.Status)
	require.NotEmpty(t, created.CreatedAt)

	// Update status only: everything else survives.
	rec = doRequest(srv, http.MethodPut, fmt.Sprintf("/tasks/%d", created.ID), `{"status":"completed"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var updated entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "A", updated.Title)
	require.Equal(t, "d", updated.Description)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, entities.TaskStatusCompleted, updated.Status)

	// Delete acknowledges with the success payload.
	rec = doRequest(srv, http.MethodDelete, fmt.Sprintf("/tasks/%d", created.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())

	// The task is gone from the list.
	rec = doRequest(srv, http.MethodGet, "/tasks", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	for _, task := range tasks {
		require.NotEqual(t, created.ID, task.ID)
	}
}

func TestTaskEndpointFailures(t *testing.T) {
	srv := newTestServer(t)

	t.Run("update unknown id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPut, "/tasks/9999", `{"status":"completed"}`, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Task not found", decodeMessage(t, rec))
	})

	t.Run("delete unknown id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodDelete, "/tasks/9999", "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Task not found", decodeMessage(t, rec))
	})

	t.Run("bad id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPut, "/tasks/abc", `{"status":"completed"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create with unknown status", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/tasks", `{"title":"A","description":"d","status":"done"}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Invalid status", decodeMessage(t, rec))
	})
}

func TestMeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("without token", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/me", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with invalid token", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/me", "", "junk")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with valid token", func(t *testing.T) {
		token := loginToken(t, srv)
		rec := doRequest(srv, http.MethodGet, "/me", "", token)
		require.Equal(t, http.StatusOK, rec.Code)

		var user entities.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		require.Equal(t, "test", user.Username)
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Generate a little traffic first.
	doRequest(srv, http.MethodGet, "/tasks", "", "")

	rec := doRequest(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
