package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/platform/database"
)

type UserRepository interface {
	// Create inserts user and fills CreatedAt. It returns common.ErrConflict
	// when the username or email is taken.
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	err := database.RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE username = $1 OR email = $2 LIMIT 1`,
			user.Username, user.Email,
		).Scan(&existing)
		switch {
		case err == nil:
			return common.ErrConflict
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		return tx.QueryRowContext(ctx,
			`INSERT INTO users (id, username, email, password_hash)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			user.ID, user.Username, user.Email, user.HashedPassword,
		).Scan(&user.CreatedAt)
	})
	if err != nil {
		// A concurrent registration can slip past the SELECT; the unique
		// index catches it.
		if errors.Is(err, common.ErrConflict) || common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return common.StoreErrorf("pgUserRepository.Create", err)
	}
	return nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, email, password_hash, created_at
	          FROM users WHERE username = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreErrorf("pgUserRepository.FindByUsername", err)
	}
	return user, nil
}
