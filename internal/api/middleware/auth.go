package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog/hlog"

	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

type contextKey string

const sessionUserCtxKey contextKey = "sessionUser"

// LoadSession resolves the verified cookie token into the session snapshot.
// It must run after jwtauth.Verify. Any failure leaves the request anonymous.
func LoadSession(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.Resolve(r.Context(), claims)
			if err != nil {
				if !errors.Is(err, common.ErrNotFound) {
					hlog.FromRequest(r).Warn().Err(err).Msg("could not load session")
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionUser(r.Context(), user)))
		})
	}
}

// RequireAuthenticated redirects anonymous requests to /login without
// running next.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionUserFromContext(r.Context()); !ok {
			common.Redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated sends signed-in users away from the login and
// register pages.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionUserFromContext(r.Context()); ok {
			common.Redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSessionUser(ctx context.Context, user model.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserCtxKey, user)
}

// SessionUserFromContext returns the identity snapshot for the request.
func SessionUserFromContext(ctx context.Context) (model.SessionUser, bool) {
	user, ok := ctx.Value(sessionUserCtxKey).(model.SessionUser)
	return user, ok
}
