package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/platform/postgres"
	"github.com/phrazzld/apitask/internal/platform/redisqueue"
	"github.com/phrazzld/apitask/internal/reminder"
	"github.com/phrazzld/apitask/internal/service"
	"github.com/phrazzld/apitask/internal/service/auth"
	"github.com/phrazzld/apitask/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config

	logger   *slog.Logger
	db       *sql.DB
	redis    *redis.Client
	calendar domain.Calendar

	// Stores
	userStore     store.UserStore
	taskStore     store.TaskStore
	categoryStore store.CategoryStore
	unitOfWork    store.UnitOfWork

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	taskService      service.TaskService
	userService      service.UserService
	categoryService  service.CategoryService

	// Notifications
	dispatcher *notify.Dispatcher
	scheduler  *reminder.Scheduler
}

// newApplication wires every dependency on top of an open database.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	loc, err := time.LoadLocation(cfg.Tasks.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid tasks timezone %q: %w", cfg.Tasks.Timezone, err)
	}
	app.calendar = domain.NewCalendar(loc, time.Now)
	policy := streak.Policy{DecayAfterDays: cfg.Streak.DecayAfterDays}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.categoryStore = postgres.NewPostgresCategoryStore(db, logger)
	app.unitOfWork = postgres.NewUnitOfWork(db, logger)

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	app.dispatcher = notify.NewDispatcher(publisher, notify.DispatcherConfig{
		QueueSize:   cfg.Notify.QueueSize,
		WorkerCount: cfg.Notify.WorkerCount,
	}, logger)
	app.dispatcher.Start()

	app.taskService, err = service.NewTaskService(app.taskStore, app.unitOfWork, app.calendar, policy, logger)
	if err != nil {
		return nil, app.failInit("task service", err)
	}
	app.userService, err = service.NewUserService(
		app.userStore,
		app.passwordVerifier,
		app.dispatcher,
		app.calendar,
		policy,
		service.UserServiceConfig{
			BCryptCost:   cfg.Auth.BCryptCost,
			WelcomeTopic: cfg.Notify.WelcomeTopic,
		},
		logger,
	)
	if err != nil {
		return nil, app.failInit("user service", err)
	}
	app.categoryService, err = service.NewCategoryService(app.categoryStore, logger)
	if err != nil {
		return nil, app.failInit("category service", err)
	}

	if cfg.Reminder.Enabled {
		if err := app.setupReminders(loc); err != nil {
			return nil, app.failInit("reminder scheduler", err)
		}
	} else {
		logger.Info("Reminder scanner disabled")
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupPublisher returns the Redis Streams publisher, or an in-memory one
// that only logs when no Redis URL is configured.
func (app *application) setupPublisher(ctx context.Context) (notify.Publisher, error) {
	if app.config.Redis.URL == "" {
		app.logger.Warn("Redis not configured, notifications will not leave this process")
		return notify.NewInMemoryPublisher(app.logger), nil
	}

	client, err := redisqueue.NewClient(ctx, app.config.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.logger.Info("Redis connection established")

	ttl := time.Duration(app.config.Notify.DedupeTTLHours) * time.Hour
	return redisqueue.NewPublisher(client, ttl, app.logger), nil
}

func (app *application) setupReminders(loc *time.Location) error {
	scanner, err := reminder.NewScanner(
		app.userStore,
		app.dispatcher,
		app.calendar,
		app.config.Notify.ReminderTopic,
		app.logger,
	)
	if err != nil {
		return err
	}
	app.scheduler, err = reminder.NewScheduler(scanner.Scan, app.config.Reminder, loc, app.logger)
	if err != nil {
		return err
	}
	app.scheduler.Start()
	app.logger.Info("Reminder scanner scheduled", "schedule", app.config.Reminder.Schedule)
	return nil
}

// failInit releases what newApplication already started. The database is
// left to the caller.
func (app *application) failInit(component string, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if app.scheduler != nil {
		_ = app.scheduler.Stop(ctx)
	}
	if app.dispatcher != nil {
		_ = app.dispatcher.Stop(ctx)
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	return fmt.Errorf("failed to create %s: %w", component, err)
}

// Run serves HTTP until the process is signalled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// stopBackground waits for a running scan, then drains queued
// notifications. The scheduler goes first so the scan can still publish.
func (app *application) stopBackground(ctx context.Context) {
	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			app.logger.Error("Reminder scheduler did not stop in time", "error", err)
		}
	}
	if app.dispatcher != nil {
		if err := app.dispatcher.Stop(ctx); err != nil {
			app.logger.Error("Notification queue did not drain in time", "error", err)
		}
	}
}

// cleanup closes the broker and database connections.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
