package repository

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

type FavoriteRepository interface {
	// Add always inserts; favoriting the same recipe twice keeps both rows.
	Add(ctx context.Context, favorite *model.Favorite) error
	// ListByUser returns the user's favorites, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Favorite, error)
}

type pgFavoriteRepository struct {
	db *sql.DB
}

func NewPgFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &pgFavoriteRepository{db: db}
}

func (r *pgFavoriteRepository) Add(ctx context.Context, favorite *model.Favorite) error {
	query := `INSERT INTO favorites (id, user_id, recipe_id, recipe_name, recipe_thumbnail)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		favorite.ID, favorite.UserID, favorite.RecipeID, favorite.RecipeName, favorite.RecipeThumbnail,
	).Scan(&favorite.CreatedAt)
	if err != nil {
		return common.StoreErrorf("pgFavoriteRepository.Add", err)
	}
	return nil
}

func (r *pgFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]model.Favorite, error) {
	query := `SELECT id, user_id, recipe_id, recipe_name, recipe_thumbnail, created_at
	          FROM favorites
	          WHERE user_id = $1
	          ORDER BY created_at DESC`
	favorites := []model.Favorite{}
	if err := sqlscan.Select(ctx, r.db, &favorites, query, userID); err != nil {
		return nil, common.StoreErrorf("pgFavoriteRepository.ListByUser", err)
	}
	return favorites, nil
}
