package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
)

const localBucket = "local"

// Durable-storage keys. The full task sequence lives as one JSON array
// under tasksKey and is rewritten on every mutation; the session token and
// user identity live under their own keys so either can be absent.
const (
	tasksKey = "tasks"
	tokenKey = "token"
	userKey  = "user"
)

// seedTask is written whenever the tasks key is absent or unparseable. It
// deliberately has no createdAt, matching the record shipped with fresh
// installs.
var seedTask = entities.Task{
	ID:          1,
	Title:       "Sample Task",
	Description: "demo",
	Status:      entities.TaskStatusPending,
}

// Store is a BoltDB-backed durable local store. It implements both
// ports.TaskRepository and ports.SessionRepository over a single bucket.
type Store struct {
	db     *bbolt.DB
	logger *logger.Logger
}

// Open opens (or creates) the store at the provided path, seeds the task
// sequence when missing or corrupt, and advances the id sequence past the
// largest persisted id so reloaded stores never reissue one.
func Open(path string, appLogger *logger.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, logger: appLogger}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initialize() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(localBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		var tasks []entities.Task
		payload := bucket.Get([]byte(tasksKey))
		if payload == nil || json.Unmarshal(payload, &tasks) != nil {
			if payload != nil {
				s.logger.Warn("Stored task list is unparseable, reseeding")
			}
			tasks = []entities.Task{seedTask}
			if err := putTasks(bucket, tasks); err != nil {
				return err
			}
		}

		// The bucket sequence backs id generation; keep it ahead of
		// everything already persisted.
		var maxID uint64
		for _, t := range tasks {
			if uint64(t.ID) > maxID {
				maxID = uint64(t.ID)
			}
		}
		if bucket.Sequence() < maxID {
			if err := bucket.SetSequence(maxID); err != nil {
				return fmt.Errorf("set id sequence: %w", err)
			}
		}

		return nil
	})
}

func putTasks(bucket *bbolt.Bucket, tasks []entities.Task) error {
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	return bucket.Put([]byte(tasksKey), payload)
}

func getTasks(bucket *bbolt.Bucket) ([]entities.Task, error) {
	payload := bucket.Get([]byte(tasksKey))
	if payload == nil {
		return nil, nil
	}
	var tasks []entities.Task
	if err := json.Unmarshal(payload, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	return tasks, nil
}

// List returns the full persisted task sequence in insertion order.
func (s *Store) List(ctx context.Context) ([]entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tasks []entities.Task
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}
		var err error
		tasks, err = getTasks(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []entities.Task{}
	}
	return tasks, nil
}

// Create assigns the next id from the persisted sequence, appends the task
// and rewrites the sequence.
func (s *Store) Create(ctx context.Context, task entities.Task) (entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return entities.Task{}, err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		task.ID = int64(seq)

		tasks, err := getTasks(bucket)
		if err != nil {
			return err
		}
		return putTasks(bucket, append(tasks, task))
	})
	if err != nil {
		return entities.Task{}, err
	}
	return task, nil
}

// Update merges the patch over the task with the given id, keeping its
// position in the sequence. Unknown ids fail with entities.ErrTaskNotFound
// and leave the sequence untouched.
func (s *Store) Update(ctx context.Context, id int64, patch entities.TaskPatch) (entities.Task, error) {
	if err := ctx.Err(); err != nil {
		return entities.Task{}, err
	}

	var updated entities.Task
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}

		tasks, err := getTasks(bucket)
		if err != nil {
			return err
		}

		for i, t := range tasks {
			if t.ID == id {
				updated = patch.Apply(t)
				updated.ID = id
				tasks[i] = updated
				return putTasks(bucket, tasks)
			}
		}
		return entities.ErrTaskNotFound
	})
	if err != nil {
		return entities.Task{}, err
	}
	return updated, nil
}

// Delete removes the task with the given id. Unknown ids fail with
// entities.ErrTaskNotFound without changing the sequence.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}

		tasks, err := getTasks(bucket)
		if err != nil {
			return err
		}

		remaining := tasks[:0:0]
		for _, t := range tasks {
			if t.ID != id {
				remaining = append(remaining, t)
			}
		}
		if len(remaining) == len(tasks) {
			return entities.ErrTaskNotFound
		}
		return putTasks(bucket, remaining)
	})
}

// SaveSession persists the token and, when present, the user identity.
func (s *Store) SaveSession(ctx context.Context, token string, user *entities.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}

		if err := bucket.Put([]byte(tokenKey), []byte(token)); err != nil {
			return fmt.Errorf("put token: %w", err)
		}
		if user != nil {
			payload, err := json.Marshal(user)
			if err != nil {
				return fmt.Errorf("marshal user: %w", err)
			}
			if err := bucket.Put([]byte(userKey), payload); err != nil {
				return fmt.Errorf("put user: %w", err)
			}
		}
		return nil
	})
}

// LoadSession rehydrates the persisted session. A missing token yields a
// logged-out session; an unparseable user record is discarded while the
// token is kept.
func (s *Store) LoadSession(ctx context.Context) (entities.Session, error) {
	if err := ctx.Err(); err != nil {
		return entities.Session{}, err
	}

	var session entities.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}

		if token := bucket.Get([]byte(tokenKey)); token != nil {
			session.Token = string(token)
		}
		if payload := bucket.Get([]byte(userKey)); payload != nil {
			var user entities.User
			if err := json.Unmarshal(payload, &user); err != nil {
				s.logger.Warn("Stored user identity is unparseable, discarding")
			} else {
				session.User = &user
			}
		}
		return nil
	})
	if err != nil {
		return entities.Session{}, err
	}
	return session, nil
}

// ClearSession removes both session keys.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(localBucket))
		if bucket == nil {
			return fmt.Errorf("storage bucket is missing")
		}
		if err := bucket.Delete([]byte(tokenKey)); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
		if err := bucket.Delete([]byte(userKey)); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
