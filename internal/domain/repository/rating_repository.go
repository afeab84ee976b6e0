package repository

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

type RatingRepository interface {
	// Upsert writes the single rating a user holds for a recipe. A second
	// call for the same pair replaces score and comment; CreatedAt keeps the
	// first insert time.
	Upsert(ctx context.Context, rating *model.Rating) error
	// ListByRecipe returns ratings with the rater's username, newest first.
	ListByRecipe(ctx context.Context, recipeID string) ([]model.RatingWithUser, error)
	Find(ctx context.Context, userID, recipeID string) (*model.Rating, error)
}

type pgRatingRepository struct {
	db *sql.DB
}

func NewPgRatingRepository(db *sql.DB) RatingRepository {
	return &pgRatingRepository{db: db}
}

func (r *pgRatingRepository) Upsert(ctx context.Context, rating *model.Rating) error {
	query := `INSERT INTO ratings (id, user_id, recipe_id, rating, comment)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id, recipe_id)
	          DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = now()
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rating.ID, rating.UserID, rating.RecipeID, rating.Score, rating.Comment,
	).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt)
	if err != nil {
		return common.StoreErrorf("pgRatingRepository.Upsert", err)
	}
	return nil
}

func (r *pgRatingRepository) ListByRecipe(ctx context.Context, recipeID string) ([]model.RatingWithUser, error) {
	query := `SELECT r.id, r.user_id, r.recipe_id, r.rating, r.comment, r.created_at, r.updated_at, u.username
	          FROM ratings r
	          JOIN users u ON u.id = r.user_id
	          WHERE r.recipe_id = $1
	          ORDER BY r.created_at DESC`
	ratings := []model.RatingWithUser{}
	if err := sqlscan.Select(ctx, r.db, &ratings, query, recipeID); err != nil {
		return nil, common.StoreErrorf("pgRatingRepository.ListByRecipe", err)
	}
	return ratings, nil
}

func (r *pgRatingRepository) Find(ctx context.Context, userID, recipeID string) (*model.Rating, error) {
	query := `SELECT id, user_id, recipe_id, rating, comment, created_at, updated_at
	          FROM ratings WHERE user_id = $1 AND recipe_id = $2`
	var rating model.Rating
	if err := sqlscan.Get(ctx, r.db, &rating, query, userID, recipeID); err != nil {
		if sqlscan.NotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreErrorf("pgRatingRepository.Find", err)
	}
	return &rating, nil
}
