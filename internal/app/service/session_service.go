package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"recipe_hub/internal/common"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
)

// SessionService binds signed cookie tokens to identity snapshots held in a
// SessionRepository.
type SessionService struct {
	store     repository.SessionRepository
	tokenAuth *jwtauth.JWTAuth
	ttl       time.Duration
}

func NewSessionService(store repository.SessionRepository, tokenAuth *jwtauth.JWTAuth, ttl time.Duration) *SessionService {
	return &SessionService{store: store, tokenAuth: tokenAuth, ttl: ttl}
}

func (s *SessionService) TokenAuth() *jwtauth.JWTAuth { return s.tokenAuth }

func (s *SessionService) TTL() time.Duration { return s.ttl }

// Login snapshots user into a new session and returns the cookie token.
func (s *SessionService) Login(ctx context.Context, user *model.User) (string, error) {
	sid := uuid.NewString()
	if err := s.store.Save(ctx, sid, user.Snapshot(), s.ttl); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	token, err := security.GenerateToken(s.tokenAuth, sid, s.ttl)
	if err != nil {
		_ = s.store.Delete(ctx, sid)
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Resolve loads the snapshot for already verified token claims.
// common.ErrNotFound means the session was destroyed or expired.
func (s *SessionService) Resolve(ctx context.Context, claims map[string]interface{}) (model.SessionUser, error) {
	sid, err := security.GetSessionIDFromClaims(claims)
	if err != nil {
		return model.SessionUser{}, fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	return s.store.Load(ctx, sid)
}

// Logout destroys the session named by claims. A token without a session id
// has nothing to destroy.
func (s *SessionService) Logout(ctx context.Context, claims map[string]interface{}) error {
	sid, err := security.GetSessionIDFromClaims(claims)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, sid); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
