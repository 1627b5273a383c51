// Package main is the entry point for the Pantry API server.
// Pantry is a multi-tenant recipe management backend with token
// authentication, image uploads, and an embedded admin console.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/cache/memory"
	redisbackend "github.com/pantrylabs/pantry/internal/cache/redis"
	"github.com/pantrylabs/pantry/internal/config"
	"github.com/pantrylabs/pantry/internal/handler"
	"github.com/pantrylabs/pantry/internal/lock"
	"github.com/pantrylabs/pantry/internal/metrics"
	"github.com/pantrylabs/pantry/internal/repository"
	"github.com/pantrylabs/pantry/internal/repository/postgres"
	"github.com/pantrylabs/pantry/internal/repository/sqlite"
	"github.com/pantrylabs/pantry/internal/service"
	"github.com/pantrylabs/pantry/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting pantry server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, db, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	// Cache and lock share the Redis connection when enabled; otherwise
	// process-local implementations back them.
	var (
		cacheBackend repository.Cache
		locker       lock.Locker
	)
	if cfg.Redis.Enabled {
		client, err := redisbackend.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer func() { _ = client.Close() }()
		cacheBackend = redisbackend.NewCache(client)
		locker = lock.NewRedisLocker(redisbackend.NewLock(client))
	} else {
		memCache := memory.NewCache()
		defer memCache.Stop()
		cacheBackend = memCache
		locker = lock.NewMemoryLocker()
	}

	blobs, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage backend")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	users := service.NewUserService(repos.User, cfg.Auth.MinPasswordLength, logger)
	tokens := service.NewTokenService(repos.Token, repos.User, users, cacheBackend, cfg.Auth.TokenCacheTTL, m, logger)
	recipes := service.NewRecipeService(repos.Recipe, repos.Tag, repos.Ingredient, locker, blobs, m, logger)
	tags := service.NewTagService(repos.Tag, logger)
	ingredients := service.NewIngredientService(repos.Ingredient, logger)
	sessions := service.NewSessionService(users, cacheBackend, cfg.Auth.SessionTTL, logger)

	adminHandler, err := handler.NewAdminHandler(handler.AdminConfig{
		SessionService: sessions,
		UserService:    users,
		SessionTTL:     cfg.Auth.SessionTTL,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize admin console")
	}

	routerConfig := handler.RouterConfig{
		UserHandler:       handler.NewUserHandler(users, tokens, logger),
		RecipeHandler:     handler.NewRecipeHandler(recipes, cfg.Server.MaxUploadSize, logger),
		TagHandler:        handler.NewTagHandler(tags, logger),
		IngredientHandler: handler.NewIngredientHandler(ingredients, logger),
		AdminHandler:      adminHandler,
		AuthMiddleware:    auth.Middleware(tokens, auth.DefaultConfig()),
		Health:            db,
		Logger:            logger,
	}
	if m != nil {
		routerConfig.MetricsMiddleware = m.Middleware
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimiter = handler.NewRateLimiter(cfg.RateLimit)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(routerConfig).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *metrics.Server
	if m != nil {
		metricsServer = metrics.NewServer(cfg.Metrics, m, logger)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown failed")
		}
	}
}

// openRepositories opens the configured database, applies the schema,
// and returns the repository bundle plus the DB handle for health
// checks and shutdown.
func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	if cfg.Database.Driver == "postgres" {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return &repository.Repositories{
			User:       postgres.NewUserRepository(db),
			Token:      postgres.NewTokenRepository(db),
			Recipe:     postgres.NewRecipeRepository(db),
			Tag:        postgres.NewTagRepository(db),
			Ingredient: postgres.NewIngredientRepository(db),
		}, db, nil
	}

	db, err := sqlite.NewDB(ctx, sqlite.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		JournalMode:     cfg.Database.JournalMode,
		BusyTimeout:     cfg.Database.BusyTimeout,
		CacheSize:       cfg.Database.CacheSize,
		SynchronousMode: cfg.Database.SynchronousMode,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return &repository.Repositories{
		User:       sqlite.NewUserRepository(db),
		Token:      sqlite.NewTokenRepository(db),
		Recipe:     sqlite.NewRecipeRepository(db),
		Tag:        sqlite.NewTagRepository(db),
		Ingredient: sqlite.NewIngredientRepository(db),
	}, db, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	if cfg.Backend == "s3" {
		return storage.NewS3Backend(ctx, cfg.S3, logger)
	}
	return storage.NewFilesystemBackend(cfg.DataDir, logger)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat
	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
