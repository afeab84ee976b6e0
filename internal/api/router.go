package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/zerolog"

	"recipe_hub/internal/api/handler"
	"recipe_hub/internal/api/middleware"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/platform/metrics"
)

type RouterDeps struct {
	Auth         *service.AuthService
	Sessions     *service.SessionService
	Interactions *service.InteractionService
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger

	AllowedOrigins []string
	// LoginRateLimit is requests per minute per IP on POST /login and
	// /register. Zero disables it.
	LoginRateLimit int
	CookieSecure   bool
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	var limit func(http.Handler) http.Handler
	if deps.LoginRateLimit > 0 {
		limit = httprate.LimitByIP(deps.LoginRateLimit, time.Minute)
	}

	r.Group(func(app chi.Router) {
		// Reads the session cookie and attaches the identity snapshot.
		app.Use(jwtauth.Verify(deps.Sessions.TokenAuth(), security.TokenFromCookie))
		app.Use(middleware.LoadSession(deps.Sessions))

		handler.NewAuthHandler(deps.Auth, deps.Sessions, deps.CookieSecure).RegisterRoutes(app, limit)
		handler.NewRecipeHandler(deps.Interactions).RegisterRoutes(app)
		handler.NewProfileHandler(deps.Interactions).RegisterRoutes(app)
	})

	return r
}
