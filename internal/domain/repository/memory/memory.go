// Package memory holds map-backed repositories with the same semantics as
// the Postgres ones. They back STORE_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
)

var (
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.RatingRepository   = (*RatingRepository)(nil)
	_ repository.FavoriteRepository = (*FavoriteRepository)(nil)
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]model.User)}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return common.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *UserRepository) FindByID(id string) (*model.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return &u, ok
}

func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

type ratingKey struct {
	userID   string
	recipeID string
}

type storedRating struct {
	model.Rating
	seq uint64
}

// RatingRepository resolves usernames through users, mirroring the join the
// Postgres query does.
type RatingRepository struct {
	mu      sync.Mutex
	seq     uint64
	ratings map[ratingKey]*storedRating
	users   *UserRepository
}

func NewRatingRepository(users *UserRepository) *RatingRepository {
	return &RatingRepository{ratings: make(map[ratingKey]*storedRating), users: users}
}

func (r *RatingRepository) Upsert(_ context.Context, rating *model.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := ratingKey{rating.UserID, rating.RecipeID}
	if existing, ok := r.ratings[key]; ok {
		existing.Score = rating.Score
		existing.Comment = cloneString(rating.Comment)
		existing.UpdatedAt = now
		*rating = existing.Rating
		rating.Comment = cloneString(existing.Comment)
		return nil
	}

	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	rating.CreatedAt = now
	rating.UpdatedAt = now
	r.seq++
	stored := &storedRating{Rating: *rating, seq: r.seq}
	stored.Comment = cloneString(rating.Comment)
	r.ratings[key] = stored
	return nil
}

func (r *RatingRepository) ListByRecipe(_ context.Context, recipeID string) ([]model.RatingWithUser, error) {
	r.mu.Lock()
	matched := make([]*storedRating, 0)
	for key, s := range r.ratings {
		if key.recipeID == recipeID {
			cp := *s
			cp.Comment = cloneString(s.Comment)
			matched = append(matched, &cp)
		}
	}
	r.mu.Unlock()

	slices.SortFunc(matched, func(a, b *storedRating) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.seq) - int(a.seq)
	})

	out := make([]model.RatingWithUser, 0, len(matched))
	for _, s := range matched {
		var username string
		if r.users != nil {
			if u, ok := r.users.FindByID(s.UserID); ok {
				username = u.Username
			}
		}
		out = append(out, model.RatingWithUser{Rating: s.Rating, Username: username})
	}
	return out, nil
}

func (r *RatingRepository) Find(_ context.Context, userID, recipeID string) (*model.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ratings[ratingKey{userID, recipeID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	rating := s.Rating
	rating.Comment = cloneString(s.Comment)
	return &rating, nil
}

// Len counts stored ratings across all recipes.
func (r *RatingRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ratings)
}

type FavoriteRepository struct {
	mu        sync.Mutex
	favorites []model.Favorite
}

func NewFavoriteRepository() *FavoriteRepository {
	return &FavoriteRepository{}
}

func (r *FavoriteRepository) Add(_ context.Context, favorite *model.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if favorite.ID == "" {
		favorite.ID = uuid.NewString()
	}
	favorite.CreatedAt = time.Now().UTC()
	r.favorites = append(r.favorites, *favorite)
	return nil
}

func (r *FavoriteRepository) ListByUser(_ context.Context, userID string) ([]model.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Appended in insertion order, so walking backwards is newest first.
	out := make([]model.Favorite, 0)
	for i := len(r.favorites) - 1; i >= 0; i-- {
		if r.favorites[i].UserID == userID {
			out = append(out, r.favorites[i])
		}
	}
	return out, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
