// Package main implements the entry point for the apitask API server, which
// tracks users' tasks and daily completion streaks and schedules reminder
// notifications for tasks about to expire.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/platform/postgres"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	if err := run(context.Background(), cfg, l, *migrateOnly); err != nil {
		l.Error("server exited with error", slog.String("error", err.Error()))
		log.Fatal(err)
	}
}

// loadAppConfig loads the configuration and logs its non-secret parts.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"timezone", cfg.Tasks.Timezone,
		"reminders_enabled", cfg.Reminder.Enabled)
	if cfg.Redis.URL == "" {
		slog.Debug("Redis URL not set, notifications stay in process")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger, migrateOnly bool) error {
	db, err := setupAppDatabase(ctx, cfg.Database, l)
	if err != nil {
		return err
	}

	if err := postgres.Migrate(ctx, db, l); err != nil {
		_ = db.Close()
		return err
	}
	if migrateOnly {
		return db.Close()
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
