package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskdeck.db")
	store, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOpenSeedsSampleTask(t *testing.T) {
	store, _ := openTestStore(t)

	tasks, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	seed := tasks[0]
	require.Equal(t, int64(1), seed.ID)
	require.Equal(t, "Sample Task", seed.Title)
	require.Equal(t, "demo", seed.Description)
	require.Equal(t, entities.TaskStatusPending, seed.Status)
	require.Empty(t, seed.CreatedAt)
}

func TestCreateAssignsUniqueMonotonicIDs(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, entities.Task{Title: "one", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	second, err := store.Create(ctx, entities.Task{Title: "two", Status: entities.TaskStatusPending})
	require.NoError(t, err)

	require.Greater(t, first.ID, int64(1), "ids start above the seed task")
	require.Greater(t, second.ID, first.ID)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	seen := map[int64]bool{}
	for _, task := range tasks {
		require.False(t, seen[task.ID], "duplicate id %d", task.ID)
		seen[task.ID] = true
	}
}

func TestDeletedIDsAreNeverReissued(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, entities.Task{Title: "ephemeral", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.ID))

	next, err := store.Create(ctx, entities.Task{Title: "after", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	require.Greater(t, next.ID, created.ID)
}

func TestReopenReproducesSequence(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, entities.Task{Title: "a", Description: "x", Status: entities.TaskStatusPending, CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)
	_, err = store.Create(ctx, entities.Task{Title: "b", Description: "y", Status: entities.TaskStatusCompleted, CreatedAt: "2026-01-02T03:04:06Z"})
	require.NoError(t, err)

	before, err := store.List(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	after, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestReopenDoesNotReissueIDs(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, entities.Task{Title: "a", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	next, err := reopened.Create(ctx, entities.Task{Title: "b", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	require.Greater(t, next.ID, created.ID)
}

func TestUpdateMergesOnlySuppliedFields(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, entities.Task{
		Title:       "A",
		Description: "d",
		Status:      entities.TaskStatusPending,
		CreatedAt:   "2026-01-02T03:04:05Z",
	})
	require.NoError(t, err)

	status := entities.TaskStatusCompleted
	updated, err := store.Update(ctx, created.ID, entities.TaskPatch{Status: &status})
	require.NoError(t, err)

	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "A", updated.Title)
	require.Equal(t, "d", updated.Description)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, entities.TaskStatusCompleted, updated.Status)
}

func TestUpdatePreservesSequenceOrder(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, entities.Task{Title: "a", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	b, err := store.Create(ctx, entities.Task{Title: "b", Status: entities.TaskStatusPending})
	require.NoError(t, err)

	title := "a2"
	_, err = store.Update(ctx, a.ID, entities.TaskPatch{Title: &title})
	require.NoError(t, err)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1, a.ID, b.ID}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	require.Equal(t, "a2", tasks[1].Title)
}

func TestUpdateUnknownIDFailsWithoutMutation(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	before, err := store.List(ctx)
	require.NoError(t, err)

	_, err = store.Update(ctx, 9999, entities.TaskPatch{})
	require.True(t, errors.Is(err, entities.ErrTaskNotFound))

	after, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestDeleteRemovesTask(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, entities.Task{Title: "gone", Status: entities.TaskStatusPending})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.ID))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	for _, task := range tasks {
		require.NotEqual(t, created.ID, task.ID)
	}
}

func TestDeleteUnknownIDFailsWithoutChange(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	before, err := store.List(ctx)
	require.NoError(t, err)

	err = store.Delete(ctx, 9999)
	require.True(t, errors.Is(err, entities.ErrTaskNotFound))

	after, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestCorruptTaskPayloadReseeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.db")

	store, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Scribble over the tasks key behind the store's back.
	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(localBucket)).Put([]byte(tasksKey), []byte("{not json"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	tasks, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Sample Task", tasks[0].Title)
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	user := &entities.User{ID: 1, Username: "test"}
	require.NoError(t, store.SaveSession(ctx, "tok-123", user))

	session, err := store.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-123", session.Token)
	require.NotNil(t, session.User)
	require.Equal(t, "test", session.User.Username)
}

func TestSessionSurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "tok-456", &entities.User{ID: 1, Username: "test"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	session, err := reopened.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-456", session.Token)
}

func TestClearSessionRemovesBothKeys(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "tok", &entities.User{ID: 1, Username: "test"}))
	require.NoError(t, store.ClearSession(ctx))

	session, err := store.LoadSession(ctx)
	require.NoError(t, err)
	require.Empty(t, session.Token)
	require.Nil(t, session.User)
}

func TestLoadSessionToleratesBadUserRecord(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "tok", &entities.User{ID: 1, Username: "test"}))
	require.NoError(t, store.Close())

	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(localBucket)).Put([]byte(userKey), []byte("garbage"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	session, err := reopened.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", session.Token)
	require.Nil(t, session.User)
}
