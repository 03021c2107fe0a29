package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// SessionState holds the client's token and user identity. It rehydrates
// from the durable store at construction and writes through on every change.
type SessionState struct {
	repo   ports.SessionRepository
	logger *logger.Logger

	mu      sync.Mutex
	session entities.Session
}

// NewSessionState loads any persisted session. A stored token that decodes
// to an already-expired claim set is logged out immediately; tokens we
// cannot decode stay opaque and are kept.
func NewSessionState(ctx context.Context, repo ports.SessionRepository, appLogger *logger.Logger) (*SessionState, error) {
	session, err := repo.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s := &SessionState{repo: repo, logger: appLogger, session: session}

	if session.Token != "" && tokenExpired(session.Token) {
		appLogger.Info("Stored session token expired, logging out")
		if err := s.Logout(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Login persists the token and identity and updates in-memory state.
func (s *SessionState) Login(ctx context.Context, token string, user *entities.User) error {
	if err := s.repo.SaveSession(ctx, token, user); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.session = entities.Session{Token: token, User: user}
	s.mu.Unlock()

	return nil
}

// Logout clears the persisted and in-memory session. Purely client-side;
// the server is never told.
func (s *SessionState) Logout(ctx context.Context) error {
	if err := s.repo.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.mu.Lock()
	s.session = entities.Session{}
	s.mu.Unlock()

	return nil
}

// Current returns a copy of the session.
func (s *SessionState) Current() entities.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Authenticated reports whether a token is held.
func (s *SessionState) Authenticated() bool {
	return s.Current().Authenticated()
}

// tokenExpired reports whether the token decodes to claims whose expiry has
// passed. The signature is not checked here; only the server can do that.
func tokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
