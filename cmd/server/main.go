package main

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/concord/internal/api"
	"github.com/Harshitk-cp/concord/internal/buildconfig"
	"github.com/Harshitk-cp/concord/internal/config"
	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/llm"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/Harshitk-cp/concord/internal/persona"
	"github.com/Harshitk-cp/concord/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redisKeyPrefix = "concord:"

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	build := buildconfig.Current()
	logger.Info("starting concord",
		zap.String("version", build.Version),
		zap.String("commit", build.Commit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, archive, closeStore := openStore(ctx, logger)
	defer closeStore()

	completer, err := llm.NewClient(ctx, config.LLMProvider(), config.LLMAPIKey(), config.LLMModel())
	if err != nil {
		logger.Fatal("failed to initialize LLM client", zap.String("provider", config.LLMProvider()), zap.Error(err))
	}
	if c, ok := completer.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))

	catalogue := persona.Default()
	if path := config.PersonaFile(); path != "" {
		catalogue, err = persona.Load(path)
		if err != nil {
			logger.Fatal("failed to load persona catalogue", zap.String("path", path), zap.Error(err))
		}
	}
	pair, err := catalogue.Pair(config.PersonaA(), config.PersonaB())
	if err != nil {
		logger.Fatal("invalid persona pair", zap.Error(err))
	}
	logger.Info("personas selected", zap.String("a", pair.A.ID), zap.String("b", pair.B.ID))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opinions := llm.NewOpinionClient(completer, logger)
	app, err := api.NewApp(api.Deps{
		KV:             kv,
		Generator:      opinions,
		Analyzer:       opinions,
		Merger:         opinions,
		Catalogue:      catalogue,
		Personas:       pair,
		Archive:        archive,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	go app.Limiter.RunCleanup(ctx, 10*time.Minute)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openStore connects the configured backend. Only postgres provides a
// fingerprint archive.
func openStore(ctx context.Context, logger *zap.Logger) (domain.KeyValueStore, domain.FingerprintArchive, func()) {
	switch config.StoreBackend() {
	case config.StoreRedis:
		kv, err := store.NewRedisKV(ctx, config.RedisURL(), redisKeyPrefix, config.StoreTTL())
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("connected to redis")
		return kv, nil, func() { _ = kv.Close() }

	case config.StorePostgres:
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("failed to prepare schema", zap.Error(err))
		}
		logger.Info("connected to database")
		return store.NewPostgresKV(pool), store.NewFingerprintStore(pool), pool.Close

	default:
		logger.Info("using in-memory store")
		return store.NewMemoryKV(config.StoreTTL()), nil, func() {}
	}
}
