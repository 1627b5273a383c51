// Package main is the entry point for the Pantry schema migration tool.
// It applies the schema to SQLite or PostgreSQL, waiting for the
// database to accept connections first so it can run as an init
// container.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/config"
	"github.com/pantrylabs/pantry/internal/repository/postgres"
	"github.com/pantrylabs/pantry/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	connectAttempts = 30
	connectDelay    = 2 * time.Second
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Pantry Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := migrateUp(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied")

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func migrateUp() error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	_ = fs.Parse(os.Args[2:])

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	ctx := context.Background()

	if cfg.Database.Driver == "postgres" {
		db, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.Migrate(ctx)
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
		return err
	}
	defer func() { _ = db.Close() }()
	return db.Migrate(ctx)
}

// connectPostgres retries the initial connection so the tool tolerates
// a database that is still starting up.
func connectPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("database not ready, retrying")
		time.Sleep(connectDelay)
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, lastErr)
}

func printUsage() {
	fmt.Println(`Pantry Migration Tool

Usage:
  pantry-migrate <command> [arguments]

Commands:
  up          Apply the schema to the configured database
  version     Print version information
  help        Show this help message

Flags:
  --config <path>   Path to the configuration file (optional)

Configuration is read the same way as the server: a config file plus
PANTRY_-prefixed environment variables, e.g.

  PANTRY_DATABASE_DRIVER=postgres PANTRY_DATABASE_HOST=db pantry-migrate up`)
}
