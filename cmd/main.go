package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// OpenTelemetry
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Infrastructure
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	// Interne
	"github.com/jupiterclapton/postboard/config"
	"github.com/jupiterclapton/postboard/internal/adapters/primary/httpapi"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/security"
	"github.com/jupiterclapton/postboard/internal/core/ports"
	"github.com/jupiterclapton/postboard/internal/core/services"
)

func main() {
	// 1. Charger la Config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Initialiser le Logger (slog Text pour le dev, JSON pour la prod)
	initLogger(cfg)
	slog.Info("🚀 Starting Postboard", "env", cfg.Env, "port", cfg.HTTPPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialiser le Tracing (OpenTelemetry)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("Error shutting down tracer", "error", err)
			}
		}()
	}

	// 4. Identity Store + Post Store : Postgres si DB_URL est posée, mémoire sinon
	var userRepo ports.UserRepository
	var postRepo ports.PostRepository

	if cfg.DBUrl != "" {
		dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
		if err != nil {
			slog.Error("Unable to parse DB config", "error", err)
			os.Exit(1)
		}
		// Injection du tracer OpenTelemetry dans le pool
		dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

		dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		// Vérification connectivité immédiate (Fail Fast)
		if err := dbPool.Ping(ctx); err != nil {
			slog.Error("Database ping failed", "error", err)
			os.Exit(1)
		}
		slog.Info("✅ Database connected")

		userRepo = repository.NewPostgresUserRepo(dbPool)
		postRepo = repository.NewPostgresPostRepo(dbPool)
	} else {
		userRepo = repository.NewMemoryUserRepo()
		postRepo = repository.NewMemoryPostRepo()
		slog.Info("💾 In-memory stores (no DB_URL)")
	}

	// 5. Cache de résultats : Redis si REDIS_URL est posée, LRU mémoire sinon
	var postCache ports.PostCache

	if cfg.RedisUrl != "" {
		opts, err := redis.ParseURL(cfg.RedisUrl)
		if err != nil {
			slog.Error("Unable to parse Redis URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Error("Failed to instrument Redis client", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Redis ping failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		slog.Info("✅ Redis connected")

		postCache = cache.NewRedisPostCache(rdb, cfg.CacheTTL)
	} else {
		postCache = cache.NewMemoryPostCache(cfg.CacheMaxEntries, cfg.CacheTTL)
		slog.Info("💾 In-memory result cache", "max_entries", cfg.CacheMaxEntries, "ttl", cfg.CacheTTL)
	}

	// 6. Event Broker (Nats JetStream) : noop si NATS_URL est vide
	var broker ports.EventPublisher

	if cfg.NatsUrl != "" {
		natsBroker, err := eventbroker.NewNatsBroker(cfg.NatsUrl)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		broker = natsBroker
		slog.Info("✅ NATS JetStream connected")
	} else {
		broker = eventbroker.NewNoopBroker()
	}

	// 7. Sécurité : hasher et token provider sélectionnés par la config.
	// Les défauts (plain + email) sont le contrat littéral de l'API d'origine.
	var hasher ports.PasswordHasher
	if cfg.HasherMode == "argon2" {
		hasher = security.NewArgon2Hasher(nil) // Params par défaut
	} else {
		hasher = security.NewPlainHasher()
	}

	var tokenProvider ports.TokenProvider
	if cfg.AuthMode == "jwt" {
		tokenProvider = security.NewJWTProvider([]byte(cfg.JWTSecret), cfg.JWTExpiry)
	} else {
		tokenProvider = security.NewEmailTokenProvider()
	}

	// 8. Wiring (Injection de dépendances) - Adapters -> Services
	identityService := services.NewIdentityService(userRepo, hasher, tokenProvider, broker)
	postService := services.NewPostService(postRepo, postCache, broker)

	// Adapter Primaire (HTTP)
	srv := httpapi.NewServer(identityService, postService)

	// 9. Chaîne de Middlewares HTTP
	var h http.Handler = srv.Handler()

	// A. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	h = c.Handler(h)

	// B. OTEL HTTP (Racine)
	h = otelhttp.NewHandler(h, "Postboard-API", otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	// 10. Démarrage Graceful
	srvHTTP := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: h,
	}

	go func() {
		slog.Info("📡 HTTP Server listening", "port", cfg.HTTPPort)
		if err := srvHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("👋 Service stopped")
}

// --- HELPERS ---

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	// Création de l'exporteur OTLP (gRPC)
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(), // En prod, gérez le TLS
	)
	if err != nil {
		return nil, err
	}

	// Ressource (Nom du service, version...)
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
