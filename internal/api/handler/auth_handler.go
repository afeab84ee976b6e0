package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog/hlog"

	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/common/security"
)

const (
	msgLoginFailed        = "An error occurred during login"
	msgRegistrationFailed = "An error occurred during registration"
)

// FormView is what the login and register pages render.
type FormView struct {
	Error string `json:"error,omitempty"`
}

type AuthHandler struct {
	authService  *service.AuthService
	sessions     *service.SessionService
	cookieSecure bool
}

func NewAuthHandler(authService *service.AuthService, sessions *service.SessionService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, cookieSecure: cookieSecure}
}

// RegisterRoutes mounts the login and register pages. limit guards the
// credential POSTs and may be nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(guest chi.Router) {
		guest.Use(middleware.RedirectIfAuthenticated)
		guest.Get("/login", h.loginPage)
		guest.Get("/register", h.registerPage)

		guest.Group(func(post chi.Router) {
			if limit != nil {
				post.Use(limit)
			}
			post.Post("/login", h.login)
			post.Post("/register", h.register)
		})
	})
	r.Get("/logout", h.logout)
}

func (h *AuthHandler) loginPage(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, FormView{})
}

func (h *AuthHandler) registerPage(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, FormView{})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, FormView{Error: "Invalid request payload"})
		return
	}

	user, err := h.authService.Authenticate(r.Context(), service.LoginRequest{
		Username: trimmed(values, "username"),
		Password: values["password"],
	})
	if err != nil {
		if !errors.Is(err, common.ErrUnauthorized) {
			hlog.FromRequest(r).Error().Err(err).Msg("login error")
		}
		common.RespondWithJSON(w, common.HTTPStatusFromError(err), FormView{Error: common.UserMessage(err, msgLoginFailed)})
		return
	}

	token, err := h.sessions.Login(r.Context(), user)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("login error")
		common.RespondWithJSON(w, http.StatusInternalServerError, FormView{Error: msgLoginFailed})
		return
	}
	http.SetCookie(w, h.sessionCookie(token, h.sessions.TTL()))
	common.Redirect(w, r, "/")
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(w, r)
	if err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, FormView{Error: "Invalid request payload"})
		return
	}

	_, err = h.authService.Register(r.Context(), service.RegisterRequest{
		Username:        trimmed(values, "username"),
		Email:           trimmed(values, "email"),
		Password:        values["password"],
		ConfirmPassword: values["confirmPassword"],
	})
	if err != nil {
		status := common.HTTPStatusFromError(err)
		if status >= http.StatusInternalServerError {
			hlog.FromRequest(r).Error().Err(err).Msg("registration error")
		}
		common.RespondWithJSON(w, status, FormView{Error: common.UserMessage(err, msgRegistrationFailed)})
		return
	}
	common.Redirect(w, r, "/login")
}

// logout always clears the cookie. If the server-side session could not be
// destroyed the user lands on / instead of /login.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if token, claims, err := jwtauth.FromContext(r.Context()); err == nil && token != nil {
		if err := h.sessions.Logout(r.Context(), claims); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("error destroying session")
			target = "/"
		}
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	common.Redirect(w, r, target)
}

func (h *AuthHandler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     security.SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
