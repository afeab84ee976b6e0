package model

import "time"

const (
	MinRatingScore   = 1
	MaxRatingScore   = 5
	MaxCommentLength = 1000
)

// Rating is unique per (UserID, RecipeID). CreatedAt is the first time the
// user rated the recipe; UpdatedAt moves on every re-rating.
type Rating struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	RecipeID  string    `json:"recipe_id" db:"recipe_id"`
	Score     int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type RatingWithUser struct {
	Rating
	Username string `json:"username" db:"username"`
}

// Favorite is append-only; the same recipe may be favorited more than once.
type Favorite struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	RecipeID        string    `json:"recipe_id" db:"recipe_id"`
	RecipeName      string    `json:"recipe_name" db:"recipe_name"`
	RecipeThumbnail string    `json:"recipe_thumbnail" db:"recipe_thumbnail"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
