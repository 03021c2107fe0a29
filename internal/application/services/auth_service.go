package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// demoUser is the single identity the gate issues. There is no account
// storage behind it.
var demoUser = entities.User{ID: 1, Username: "test"}

// Claims represents the session token claims
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService validates the fixed demo credential pair and mints session
// tokens. The token is opaque to callers; nothing on the client decodes it.
type AuthService struct {
	cfg          config.AuthConfig
	passwordHash []byte
	logger       *logger.Logger
}

// NewAuthService creates a new auth service. The demo password is hashed
// once up front so logins go through a real bcrypt comparison.
func NewAuthService(cfg config.AuthConfig, appLogger *logger.Logger) (*AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}

	return &AuthService{
		cfg:          cfg,
		passwordHash: hash,
		logger:       appLogger,
	}, nil
}

// Login checks the credential pair and returns a fresh token plus the fixed
// user identity. Every failure collapses to entities.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.Username != s.cfg.DemoUsername {
		s.logger.Warn("Login attempt with unknown username", "username", req.Username)
		return nil, entities.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.logger.Warn("Login attempt with invalid password", "username", req.Username)
		return nil, entities.ErrInvalidCredentials
	}

	user := demoUser
	user.Username = s.cfg.DemoUsername

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "username", user.Username)

	return &ports.LoginResponse{Token: token, User: &user}, nil
}

// ValidateToken verifies a session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, entities.ErrInvalidToken
	}

	return &ports.Claims{UserID: claims.UserID, Username: claims.Username}, nil
}

func (s *AuthService) generateToken(user entities.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
