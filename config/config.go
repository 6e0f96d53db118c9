package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string
	HTTPPort    string

	// Infrastructure (vides = backings mémoire / broker noop)
	DBUrl    string // Connection string Postgres
	RedisUrl string
	NatsUrl  string

	// Cache de résultats (défauts = contrat d'origine : 100 entrées, 300s)
	CacheMaxEntries int
	CacheTTL        time.Duration

	// Sécurité
	HasherMode string // "plain" (contrat d'origine) ou "argon2"
	AuthMode   string // "email" (contrat d'origine) ou "jwt"
	JWTSecret  string
	JWTExpiry  time.Duration

	// Telemetry
	OtelEndpoint string
}

// Load charge la configuration depuis l'ENV ou utilise des défauts
func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnv("APP_ENV", "local"),
		ServiceName:     getEnv("SERVICE_NAME", "postboard"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		RedisUrl:        getEnv("REDIS_URL", ""),
		NatsUrl:         getEnv("NATS_URL", ""),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 100),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		HasherMode:      getEnv("HASHER", "plain"),
		AuthMode:        getEnv("AUTH_MODE", "email"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiry:       time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 15)) * time.Minute,
		OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validation basique pour éviter de démarrer avec une config cassée
	if cfg.CacheMaxEntries <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if cfg.AuthMode == "jwt" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
