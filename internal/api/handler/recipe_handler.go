package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

type RecipeHandler struct {
	interactions *service.InteractionService
}

func NewRecipeHandler(interactions *service.InteractionService) *RecipeHandler {
	return &RecipeHandler{interactions: interactions}
}

func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.categories)
	r.Get("/search", h.search)
	r.Get("/category/{category}", h.category)

	r.Route("/recipe/{id}", func(rr chi.Router) {
		rr.Get("/", h.recipe)
		rr.Group(func(auth chi.Router) {
			auth.Use(middleware.RequireAuthenticated)
			auth.Post("/rate", h.rate)
			auth.Post("/favorite", h.favorite)
		})
	})
}

func (h *RecipeHandler) categories(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.interactions.Categories(r.Context()))
}

func (h *RecipeHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	common.RespondWithJSON(w, http.StatusOK, h.interactions.Search(r.Context(), q.Get("query"), q.Get("type")))
}

func (h *RecipeHandler) category(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.interactions.Category(r.Context(), chi.URLParam(r, "category")))
}

// recipe renders a degraded view on upstream failure; only an unknown id
// changes the status.
func (h *RecipeHandler) recipe(w http.ResponseWriter, r *http.Request) {
	var viewer *model.SessionUser
	if user, ok := middleware.SessionUserFromContext(r.Context()); ok {
		viewer = &user
	}

	view, err := h.interactions.RecipeDetail(r.Context(), recipeID(r), viewer)
	status := http.StatusOK
	if errors.Is(err, common.ErrNotFound) {
		status = http.StatusNotFound
	}
	common.RespondWithJSON(w, status, view)
}

// rate always redirects back to the recipe; failures are only logged.
func (h *RecipeHandler) rate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFromContext(r.Context())
	id := recipeID(r)
	back := recipePath(r)

	values, err := formValues(w, r)
	if err == nil {
		var score int
		score, err = strconv.Atoi(trimmed(values, "rating"))
		if err != nil {
			err = common.ErrInvalidRating
		} else {
			err = h.interactions.RateRecipe(r.Context(), user, id, score, values["comment"])
		}
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("recipe_id", id).Msg("rating error")
	}
	common.Redirect(w, r, back)
}

func (h *RecipeHandler) favorite(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFromContext(r.Context())
	id := recipeID(r)

	values, err := formValues(w, r)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("recipe_id", id).Msg("error adding favorite")
		common.Redirect(w, r, recipePath(r))
		return
	}

	view, err := h.interactions.FavoriteRecipe(r.Context(), user, id, trimmed(values, "recipe_name"), trimmed(values, "recipe_thumbnail"))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("recipe_id", id).Msg("error adding favorite")
		common.Redirect(w, r, recipePath(r))
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

// recipeID strips an optional "-slug" suffix: "52772-teriyaki" is "52772".
func recipeID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func recipePath(r *http.Request) string {
	return "/recipe/" + url.PathEscape(chi.URLParam(r, "id"))
}
