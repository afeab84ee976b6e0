package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/metrics"
)

// RecipeCatalog is the read-only recipe source. *mealdb.Client implements it.
type RecipeCatalog interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	Search(ctx context.Context, query string, mode model.SearchMode) ([]model.RecipeSummary, error)
	ListByCategory(ctx context.Context, category string) ([]model.RecipeSummary, error)
	Lookup(ctx context.Context, id string) (*model.Recipe, error)
}

const (
	msgCategoriesFailed = "Failed to load categories"
	msgSearchFailed     = "Failed to search recipes"
	msgMealsFailed      = "Failed to load meals"
	msgRecipeFailed     = "Failed to load recipe"
	msgRecipeNotFound   = "Recipe not found"
	msgProfileFailed    = "Failed to load profile"
)

type CategoriesView struct {
	Categories []model.Category `json:"categories"`
	Error      string           `json:"error,omitempty"`
}

type SearchView struct {
	Meals []model.RecipeSummary `json:"meals"`
	Query string                `json:"query"`
	Type  model.SearchMode      `json:"type"`
	Error string                `json:"error,omitempty"`
}

type CategoryView struct {
	Meals    []model.RecipeSummary `json:"meals"`
	Category string                `json:"category"`
	Error    string                `json:"error,omitempty"`
}

type RecipeView struct {
	Recipe        *model.Recipe          `json:"recipe"`
	Ratings       []model.RatingWithUser `json:"ratings"`
	AverageRating float64                `json:"average_rating"`
	RatingCount   int                    `json:"rating_count"`
	UserRating    *model.Rating          `json:"user_rating,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

type ProfileView struct {
	User      model.SessionUser `json:"user"`
	Favorites []model.Favorite  `json:"favorites"`
	Error     string            `json:"error,omitempty"`
}

// InteractionService merges catalog data with ratings and favorites. Read
// paths never fail: they return a view carrying an error message instead.
type InteractionService struct {
	catalog   RecipeCatalog
	ratings   repository.RatingRepository
	favorites repository.FavoriteRepository
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

func NewInteractionService(
	catalog RecipeCatalog,
	ratings repository.RatingRepository,
	favorites repository.FavoriteRepository,
	log zerolog.Logger,
	m *metrics.Metrics,
) *InteractionService {
	return &InteractionService{
		catalog:   catalog,
		ratings:   ratings,
		favorites: favorites,
		log:       log.With().Str("component", "interaction").Logger(),
		metrics:   m,
	}
}

func (s *InteractionService) Categories(ctx context.Context) CategoriesView {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("error fetching categories")
		return CategoriesView{Categories: []model.Category{}, Error: msgCategoriesFailed}
	}
	return CategoriesView{Categories: categories}
}

// Search with a blank query returns an empty result without calling the
// catalog.
func (s *InteractionService) Search(ctx context.Context, query, searchType string) SearchView {
	view := SearchView{Meals: []model.RecipeSummary{}, Query: query, Type: model.ParseSearchMode(searchType)}
	if strings.TrimSpace(query) == "" {
		return view
	}
	meals, err := s.catalog.Search(ctx, query, view.Type)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Str("type", string(view.Type)).Msg("error searching recipes")
		view.Error = msgSearchFailed
		return view
	}
	view.Meals = meals
	return view
}

func (s *InteractionService) Category(ctx context.Context, category string) CategoryView {
	meals, err := s.catalog.ListByCategory(ctx, category)
	if err != nil {
		s.log.Error().Err(err).Str("category", category).Msg("error fetching meals")
		return CategoryView{Meals: []model.RecipeSummary{}, Category: category, Error: msgMealsFailed}
	}
	return CategoryView{Meals: meals, Category: category}
}

// RecipeDetail loads the recipe and its ratings concurrently; each may fail
// without affecting the other. The returned error is the lookup failure, if
// any, and the view is usable either way. viewer is nil for anonymous
// requests.
func (s *InteractionService) RecipeDetail(ctx context.Context, recipeID string, viewer *model.SessionUser) (RecipeView, error) {
	view := RecipeView{Ratings: []model.RatingWithUser{}}
	var lookupErr error

	var g errgroup.Group
	g.Go(func() error {
		recipe, err := s.catalog.Lookup(ctx, recipeID)
		if err != nil {
			lookupErr = err
			return nil
		}
		view.Recipe = recipe
		return nil
	})
	g.Go(func() error {
		ratings, err := s.ratings.ListByRecipe(ctx, recipeID)
		if err != nil {
			s.log.Error().Err(err).Str("recipe_id", recipeID).Msg("error fetching ratings")
			return nil
		}
		view.Ratings = ratings
		return nil
	})
	if viewer != nil {
		g.Go(func() error {
			own, err := s.ratings.Find(ctx, viewer.ID, recipeID)
			if err != nil {
				if !errors.Is(err, common.ErrNotFound) {
					s.log.Warn().Err(err).Str("recipe_id", recipeID).Msg("error fetching viewer rating")
				}
				return nil
			}
			view.UserRating = own
			return nil
		})
	}
	_ = g.Wait()

	view.RatingCount = len(view.Ratings)
	if view.RatingCount > 0 {
		var sum int
		for _, r := range view.Ratings {
			sum += r.Score
		}
		view.AverageRating = math.Round(float64(sum)/float64(view.RatingCount)*10) / 10
	}

	if lookupErr != nil {
		if errors.Is(lookupErr, common.ErrNotFound) {
			view.Error = msgRecipeNotFound
		} else {
			s.log.Error().Err(lookupErr).Str("recipe_id", recipeID).Msg("error fetching recipe")
			view.Error = msgRecipeFailed
		}
	}
	return view, lookupErr
}

// RateRecipe validates and upserts the user's rating for recipeID. An empty
// comment is stored as NULL.
func (s *InteractionService) RateRecipe(ctx context.Context, user model.SessionUser, recipeID string, score int, comment string) (err error) {
	defer func() { s.metrics.ObserveEngagement("rating", err) }()

	if recipeID == "" {
		return common.NewValidationError("recipe_id", "Recipe id is required")
	}
	if score < model.MinRatingScore || score > model.MaxRatingScore {
		return common.ErrInvalidRating
	}
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return common.ErrCommentTooLong
	}

	rating := &model.Rating{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		RecipeID: recipeID,
		Score:    score,
	}
	if strings.TrimSpace(comment) != "" {
		rating.Comment = &comment
	}
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return fmt.Errorf("rate recipe %s: %w", recipeID, err)
	}
	return nil
}

// FavoriteRecipe records the favorite and returns the profile re-read from
// the store.
func (s *InteractionService) FavoriteRecipe(ctx context.Context, user model.SessionUser, recipeID, name, thumbnail string) (view ProfileView, err error) {
	defer func() { s.metrics.ObserveEngagement("favorite", err) }()

	if recipeID == "" {
		return ProfileView{}, common.NewValidationError("recipe_id", "Recipe id is required")
	}
	favorite := &model.Favorite{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		RecipeID:        recipeID,
		RecipeName:      name,
		RecipeThumbnail: thumbnail,
	}
	if err := s.favorites.Add(ctx, favorite); err != nil {
		return ProfileView{}, fmt.Errorf("add favorite %s: %w", recipeID, err)
	}

	favorites, err := s.favorites.ListByUser(ctx, user.ID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("reload favorites: %w", err)
	}
	return ProfileView{User: user, Favorites: favorites}, nil
}

func (s *InteractionService) Profile(ctx context.Context, user model.SessionUser) ProfileView {
	favorites, err := s.favorites.ListByUser(ctx, user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("error fetching profile")
		return ProfileView{User: user, Favorites: []model.Favorite{}, Error: msgProfileFailed}
	}
	return ProfileView{User: user, Favorites: favorites}
}
