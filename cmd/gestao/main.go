// Project management backend.
//
// This is the main entry point for the project evaluation service: a REST
// API managing projects, authors, evaluators, evaluations, schedules, and
// prizes, secured by stateless JWT authentication.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/raunerlucas/app-gestao-projetos/migrations"

	"github.com/raunerlucas/app-gestao-projetos/internal/api"
	"github.com/raunerlucas/app-gestao-projetos/internal/audit"
	"github.com/raunerlucas/app-gestao-projetos/internal/auth"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/config"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/database"
	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/logging"
	"github.com/raunerlucas/app-gestao-projetos/internal/people"
	"github.com/raunerlucas/app-gestao-projetos/internal/project"
	"github.com/raunerlucas/app-gestao-projetos/internal/schedule"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting project management backend",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Auth components
	store := auth.NewCredentialStore(db.DB)
	tokens := auth.NewTokenService([]byte(cfg.Security.JWT.Secret), cfg.TokenTTL())
	verifier := auth.NewVerifier(store, cfg.Security.Bcrypt.Cost)

	// Seed the initial admin credential on first boot
	if _, seedErr := auth.SeedAdmin(ctx, store, cfg.Security.Bcrypt.Cost, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin credential: %w", seedErr)
	}

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		DB:          db.DB,
		Tokens:      tokens,
		Verifier:    verifier,
		Authors:     people.NewAuthorRepository(db.DB),
		Evaluators:  people.NewEvaluatorRepository(db.DB),
		Projects:    project.NewProjectRepository(db.DB),
		Evaluations: project.NewEvaluationRepository(db.DB),
		Statuses:    project.NewStatusRepository(db.DB),
		Schedules:   schedule.NewRepository(db.DB),
		AuditRepo:   audit.NewSQLiteRepository(db.DB),
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Database

	log.Info("project management backend stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GESTAO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GESTAO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
