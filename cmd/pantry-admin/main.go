// Package main is the entry point for the Pantry admin CLI.
// This tool provides administrative commands for managing user accounts
// without going through the HTTP API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/pantrylabs/pantry/internal/config"
	"github.com/pantrylabs/pantry/internal/repository"
	"github.com/pantrylabs/pantry/internal/repository/postgres"
	"github.com/pantrylabs/pantry/internal/repository/sqlite"
	"github.com/pantrylabs/pantry/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Pantry Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "createsuperuser":
		runOrDie(createSuperuser)

	case "list":
		runOrDie(listUsers)

	case "activate":
		runOrDie(func(ctx context.Context, users *service.UserService, args []string) error {
			return setActive(ctx, users, args, true)
		})

	case "deactivate":
		runOrDie(func(ctx context.Context, users *service.UserService, args []string) error {
			return setActive(ctx, users, args, false)
		})

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

type commandFunc func(ctx context.Context, users *service.UserService, args []string) error

// runOrDie opens the database, builds a UserService, and runs the
// command with the remaining arguments.
func runOrDie(fn commandFunc) {
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	_ = fs.Parse(os.Args[2:])

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	ctx := context.Background()

	userRepo, closeDB, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeDB() }()

	users := service.NewUserService(userRepo, cfg.Auth.MinPasswordLength, logger)
	if err := fn(ctx, users, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openUserRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UserRepository, func() error, error) {
	if cfg.Database.Driver == "postgres" {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), db.Close, nil
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
	return sqlite.NewUserRepository(db), db.Close, nil
}

// createSuperuser prompts for an email and password, mirroring the
// interactive flow admins expect from management tooling.
func createSuperuser(ctx context.Context, users *service.UserService, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Password (again): ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	user, err := users.CreateSuperuser(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Superuser created: %s (id %d)\n", user.Email, user.ID)
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func listUsers(ctx context.Context, users *service.UserService, _ []string) error {
	offset := 0
	for {
		result, err := users.List(ctx, service.ListUsersInput{Limit: 100, Offset: offset})
		if err != nil {
			return err
		}
		for _, user := range result.Users {
			flags := make([]string, 0, 3)
			if !user.IsActive {
				flags = append(flags, "inactive")
			}
			if user.IsStaff {
				flags = append(flags, "staff")
			}
			if user.IsSuperuser {
				flags = append(flags, "superuser")
			}
			fmt.Printf("%6d  %-40s %-20s %s\n", user.ID, user.Email, user.Name, strings.Join(flags, ","))
		}
		offset += len(result.Users)
		if int64(offset) >= result.TotalCount || len(result.Users) == 0 {
			break
		}
	}
	return nil
}

func setActive(ctx context.Context, users *service.UserService, args []string, active bool) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one user id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	if err := users.SetActive(ctx, id, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("User %d %s\n", id, state)
	return nil
}

func printUsage() {
	fmt.Println(`Pantry Admin CLI

Usage:
  pantry-admin <command> [arguments]

Commands:
  createsuperuser   Create a staff account with full privileges (interactive)
  list              List all user accounts
  activate          Re-enable a user account by id
  deactivate        Disable a user account by id
  version           Print version information
  help              Show this help message

Flags:
  --config <path>   Path to the configuration file (optional)

Examples:
  pantry-admin createsuperuser
  pantry-admin list
  pantry-admin deactivate 42

Configuration is read the same way as the server: a config file plus
PANTRY_-prefixed environment variables.`)
}
