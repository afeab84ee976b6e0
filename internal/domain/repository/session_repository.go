package repository

import (
	"context"
	"time"

	"recipe_hub/internal/domain/model"
)

// SessionRepository keeps identity snapshots keyed by session id. Load
// returns common.ErrNotFound for unknown or expired sessions.
type SessionRepository interface {
	Save(ctx context.Context, id string, user model.SessionUser, ttl time.Duration) error
	Load(ctx context.Context, id string) (model.SessionUser, error)
	Delete(ctx context.Context, id string) error
}
