package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. APITASK_SERVER_PORT for server.port.
const EnvPrefix = "APITASK"

// keys lists every configuration key so that viper binds the matching
// environment variable even when no default or file value exists.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.cors_allowed_origins",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"auth.jwt_secret",
	"auth.bcrypt_cost",
	"auth.token_lifetime_minutes",
	"auth.refresh_token_lifetime_minutes",
	"redis.url",
	"notify.reminder_topic",
	"notify.welcome_topic",
	"notify.dedupe_ttl_hours",
	"notify.queue_size",
	"notify.worker_count",
	"tasks.timezone",
	"tasks.retention_days",
	"tasks.default_page_size",
	"tasks.max_page_size",
	"streak.decay_after_days",
	"reminder.enabled",
	"reminder.schedule",
	"reminder.scan_timeout_seconds",
	"mail.sendgrid_api_key",
	"mail.sendgrid_host",
	"mail.from_email",
	"mail.from_name",
	"mail.consumer_group",
	"mail.consumer_name",
	"mail.worker_count",
	"mail.batch_size",
	"mail.block_seconds",
	"mail.reclaim_idle_seconds",
	"mail.max_deliveries",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 120)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("notify.reminder_topic", "notifications.task_reminder")
	v.SetDefault("notify.welcome_topic", "notifications.welcome")
	v.SetDefault("notify.dedupe_ttl_hours", 48)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("tasks.timezone", "America/Sao_Paulo")
	v.SetDefault("tasks.retention_days", 30)
	v.SetDefault("tasks.default_page_size", 10)
	v.SetDefault("tasks.max_page_size", 100)
	v.SetDefault("streak.decay_after_days", 2)
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.schedule", "0 * * * * *")
	v.SetDefault("reminder.scan_timeout_seconds", 50)
	v.SetDefault("mail.sendgrid_host", "https://api.sendgrid.com")
	v.SetDefault("mail.from_name", "apitask")
	v.SetDefault("mail.consumer_group", "mailer")
	v.SetDefault("mail.consumer_name", "mailer-1")
	v.SetDefault("mail.worker_count", 2)
	v.SetDefault("mail.batch_size", 10)
	v.SetDefault("mail.block_seconds", 5)
	v.SetDefault("mail.reclaim_idle_seconds", 300)
	v.SetDefault("mail.max_deliveries", 5)
}

// Load configuration from a local .env file, an optional config.yaml and
// environment variables. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
