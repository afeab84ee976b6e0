package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"recipe_hub/internal/common"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/metrics"
)

type AuthService struct {
	userRepo repository.UserRepository
	metrics  *metrics.Metrics
}

func NewAuthService(userRepo repository.UserRepository, m *metrics.Metrics) *AuthService {
	return &AuthService{userRepo: userRepo, metrics: m}
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register validates the form before touching the store, then inserts the
// user with a bcrypt hash of the password.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (user *model.User, err error) {
	defer func() { s.metrics.ObserveAuth("register", err) }()

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, common.ErrMissingIdentity
	}
	if !security.IsStrongPassword(req.Password) {
		return nil, common.ErrWeakPassword
	}
	if req.Password != req.ConfirmPassword {
		return nil, common.ErrPasswordMismatch
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate returns common.ErrUnauthorized for both an unknown username
// and a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (user *model.User, err error) {
	defer func() { s.metrics.ObserveAuth("login", err) }()

	if req.Username == "" || req.Password == "" {
		return nil, common.ErrUnauthorized
	}

	user, err = s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			security.BurnPasswordCheck(req.Password)
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}
	return user, nil
}
