package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	APIPort string `env:"API_PORT,default=8080"`

	// DBDSN wins over the discrete DB_* settings when set.
	DBDSN          string `env:"DB_DSN"`
	DBHost         string `env:"DB_HOST,default=localhost"`
	DBPort         string `env:"DB_PORT,default=5432"`
	DBUser         string `env:"DB_USER,default=recipes"`
	DBPassword     string `env:"DB_PASSWORD,default=recipes"`
	DBName         string `env:"DB_NAME,default=recipe_hub"`
	DBSslMode      string `env:"DB_SSLMODE,default=disable"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=10"`
	StoreBackend   string `env:"STORE_BACKEND,default=postgres"`

	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	SessionBackend string        `env:"SESSION_BACKEND,default=redis"`
	SessionSecret  string        `env:"SESSION_SECRET,default=your-secret-key"`
	SessionTTL     time.Duration `env:"SESSION_TTL,default=24h"`
	CookieSecure   bool          `env:"COOKIE_SECURE,default=false"`

	MealDBBaseURL   string        `env:"MEALDB_BASE_URL,default=https://www.themealdb.com/api/json/v1/1"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=5s"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	LoginRateLimit int      `env:"LOGIN_RATE_LIMIT,default=20"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	LogFormat    string `env:"LOG_FORMAT,default=console"`
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith resolves the config from an arbitrary lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBMaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.StoreBackend != BackendPostgres && c.StoreBackend != BackendMemory {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}
	if c.SessionBackend != BackendRedis && c.SessionBackend != BackendMemory {
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if _, err := url.ParseRequestURI(c.MealDBBaseURL); err != nil {
		return fmt.Errorf("MEALDB_BASE_URL: %w", err)
	}
	return nil
}

// DBConnString returns the DSN handed to the pgx driver.
func (c *Config) DBConnString() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}
