package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"recipe_hub/internal/api"
	"recipe_hub/internal/app/service"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/domain/repository/memory"
	"recipe_hub/internal/platform/config"
	"recipe_hub/internal/platform/database"
	"recipe_hub/internal/platform/logger"
	"recipe_hub/internal/platform/mealdb"
	"recipe_hub/internal/platform/metrics"
	"recipe_hub/internal/platform/session"
	"recipe_hub/internal/platform/telemetry"
)

type stores struct {
	users     repository.UserRepository
	ratings   repository.RatingRepository
	favorites repository.FavoriteRepository
	sessions  repository.SessionRepository
	closers   []func() error
}

func (s *stores) close(log zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("error closing store")
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configuration and logging
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(os.Stderr, "info", "console")
		bootLog.Fatal().Err(err).Msg("could not load configuration")
	}
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err := telemetry.Init(ctx, "recipe_hub", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize tracing")
	}

	// 2. Stores
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open stores")
	}
	defer st.close(log)

	// 3. Services
	m := metrics.New()
	catalog := mealdb.NewClient(mealdb.Config{
		BaseURL: cfg.MealDBBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Metrics: m,
		Logger:  log,
	})
	if cfg.SessionSecret == "your-secret-key" {
		log.Warn().Msg("SESSION_SECRET is the development default")
	}
	authService := service.NewAuthService(st.users, m)
	sessionService := service.NewSessionService(st.sessions, security.NewTokenAuth([]byte(cfg.SessionSecret)), cfg.SessionTTL)
	interactionService := service.NewInteractionService(catalog, st.ratings, st.favorites, log, m)

	// 4. Router and HTTP server
	router := api.NewRouter(api.RouterDeps{
		Auth:           authService,
		Sessions:       sessionService,
		Interactions:   interactionService,
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		LoginRateLimit: cfg.LoginRateLimit,
		CookieSecure:   cfg.CookieSecure,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      telemetry.Middleware("recipe_hub")(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Str("store", cfg.StoreBackend).Str("sessions", cfg.SessionBackend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.APIPort).Msg("could not listen")
		}
	}()

	// 5. Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		users := memory.NewUserRepository()
		st.users = users
		st.ratings = memory.NewRatingRepository(users)
		st.favorites = memory.NewFavoriteRepository()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			st.close(log)
			return nil, err
		}
		st.users = repository.NewPgUserRepository(db)
		st.ratings = repository.NewPgRatingRepository(db)
		st.favorites = repository.NewPgFavoriteRepository(db)
		log.Info().Msg("database connected")
	}

	switch cfg.SessionBackend {
	case config.BackendMemory:
		st.sessions = session.NewMemoryStore()
	default:
		rdb, err := session.ConnectRedis(ctx, cfg)
		if err != nil {
			st.close(log)
			return nil, err
		}
		st.closers = append(st.closers, rdb.Close)
		st.sessions = session.NewRedisStore(rdb)
		log.Info().Msg("redis connected")
	}
	return st, nil
}
