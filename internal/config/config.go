package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Notify   NotifyConfig   `mapstructure:"notify"   validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks"    validate:"required"`
	Streak   StreakConfig   `mapstructure:"streak"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int      `mapstructure:"port"                 validate:"required,gt=0,lt=65536"`
	LogLevel           string   `mapstructure:"log_level"            validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lt=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,lt=525600"`
}

// RedisConfig points at the broker backing the notification queue.
// An empty URL switches the server to the in-memory publisher.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// NotifyConfig controls how notifications are published.
type NotifyConfig struct {
	ReminderTopic  string `mapstructure:"reminder_topic"   validate:"required"`
	WelcomeTopic   string `mapstructure:"welcome_topic"    validate:"required"`
	DedupeTTLHours int    `mapstructure:"dedupe_ttl_hours" validate:"gte=0"`
	QueueSize      int    `mapstructure:"queue_size"       validate:"gt=0"`
	WorkerCount    int    `mapstructure:"worker_count"     validate:"gt=0"`
}

// TasksConfig holds task lifecycle settings.
type TasksConfig struct {
	// Timezone defines which calendar day "today" is.
	Timezone        string `mapstructure:"timezone"          validate:"required"`
	RetentionDays   int    `mapstructure:"retention_days"    validate:"gte=0"`
	DefaultPageSize int    `mapstructure:"default_page_size" validate:"gt=0"`
	MaxPageSize     int    `mapstructure:"max_page_size"     validate:"gtefield=DefaultPageSize"`
}

// StreakConfig configures the streak decay policy.
// A zero DecayAfterDays disables decay.
type StreakConfig struct {
	DecayAfterDays int `mapstructure:"decay_after_days" validate:"gte=0"`
}

// ReminderConfig configures the due-task reminder scanner.
type ReminderConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Schedule is a six-field cron expression (seconds first).
	Schedule           string `mapstructure:"schedule"             validate:"required"`
	ScanTimeoutSeconds int    `mapstructure:"scan_timeout_seconds" validate:"gt=0"`
}

// MailConfig is only consumed by the mailer process.
type MailConfig struct {
	SendGridAPIKey     string `mapstructure:"sendgrid_api_key"`
	SendGridHost       string `mapstructure:"sendgrid_host"        validate:"omitempty,url"`
	FromEmail          string `mapstructure:"from_email"           validate:"omitempty,email"`
	FromName           string `mapstructure:"from_name"`
	ConsumerGroup      string `mapstructure:"consumer_group"`
	ConsumerName       string `mapstructure:"consumer_name"`
	WorkerCount        int    `mapstructure:"worker_count"         validate:"gte=0"`
	BatchSize          int    `mapstructure:"batch_size"           validate:"gte=0"`
	BlockSeconds       int    `mapstructure:"block_seconds"        validate:"gt=0"`
	ReclaimIdleSeconds int    `mapstructure:"reclaim_idle_seconds" validate:"gte=0"`
	// MaxDeliveries caps handler attempts per message; 0 retries forever.
	MaxDeliveries int `mapstructure:"max_deliveries" validate:"gte=0"`
}
