package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
)

type ProfileHandler struct {
	interactions *service.InteractionService
}

func NewProfileHandler(interactions *service.InteractionService) *ProfileHandler {
	return &ProfileHandler{interactions: interactions}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuthenticated).Get("/profile", h.profile)
}

func (h *ProfileHandler) profile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFromContext(r.Context())
	common.RespondWithJSON(w, http.StatusOK, h.interactions.Profile(r.Context(), user))
}
