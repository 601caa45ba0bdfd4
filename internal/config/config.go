package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Env   string
	Port  int
	DBURL string
	// WorkerPort serves the worker's probes and metrics.
	WorkerPort int

	// STORE picks the product/user backend, TOKEN_STORE the token backend.
	Store      string
	TokenStore string

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageDir       string
	StorageURLPrefix string
	MaxUploadBytes   int64

	// ProductCacheTTL enables the in-process read cache when positive.
	ProductCacheTTL time.Duration
	MaxPerPage      int

	CORSAllowedOrigins []string

	LogFile      string
	OTelEnabled  bool
	OTelEndpoint string

	MigrateOnStart bool

	SeedUserEmail    string
	SeedUserPassword string
	SeedUserName     string

	SweepInterval time.Duration

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func Load() Config {
	// a missing .env is normal outside local dev
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "err", err)
	}

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		WorkerPort: getEnvInt("WORKER_PORT", 8081),

		Store:      strings.ToLower(getEnv("STORE", StorePostgres)),
		TokenStore: strings.ToLower(getEnv("TOKEN_STORE", StorePostgres)),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageDir:       getEnv("STORAGE_DIR", "./storage/products"),
		StorageURLPrefix: getEnv("STORAGE_URL_PREFIX", "/storage"),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),

		ProductCacheTTL: time.Duration(getEnvInt("PRODUCT_CACHE_TTL_SECONDS", 0)) * time.Second,
		MaxPerPage:      getEnvInt("MAX_PER_PAGE", 100),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		LogFile:      getEnv("LOG_FILE", ""),
		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		SeedUserEmail:    getEnv("SEED_USER_EMAIL", ""),
		SeedUserPassword: getEnv("SEED_USER_PASSWORD", ""),
		SeedUserName:     getEnv("SEED_USER_NAME", "Catalog Admin"),

		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 300)) * time.Second,

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

// Validate catches settings that would only fail later at request time.
func (c Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("STORE must be postgres or memory, got %q", c.Store))
	}
	switch c.TokenStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be postgres, redis or memory, got %q", c.TokenStore))
	}
	if c.TokenStore == StorePostgres && c.Store == StoreMemory {
		errs = append(errs, errors.New("TOKEN_STORE=postgres needs STORE=postgres"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL_MINUTES must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.MaxPerPage <= 0 {
		errs = append(errs, errors.New("MAX_PER_PAGE must be positive"))
	}

	return errors.Join(errs...)
}

// NeedsPostgres reports whether any configured backend lives in postgres.
func (c Config) NeedsPostgres() bool {
	return c.Store == StorePostgres || c.TokenStore == StorePostgres
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "catalog")
	pass := getEnv("DB_PASSWORD", "catalog")
	name := getEnv("DB_NAME", "catalog")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
