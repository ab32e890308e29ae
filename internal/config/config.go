package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Byiringiro215/lms/internal/apperr"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Ledger
		Sweep
		Auth
		Identity
		Events
		Tasks
		Audit
	}

	HTTP struct {
		Port        int32
		Host        string
		FrontendURL string // allowed CORS origin and post-login redirect
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level string
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		URL    string // postgres DSN
	}
	Ledger struct {
		StudentBorrowLimit int           // required, no default
		MaxLoanDays        int           // 0 = no upper bound on due date
		TxTimeout          time.Duration // bound on one borrow/return transaction
	}
	Sweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 0 * * *" = daily at midnight
	}
	Auth struct {
		JWTSecret     string // required, no default
		TokenExpiry   time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS

		MaxCallbackAttempts int
		RateLimitWindow     time.Duration
		LockoutDuration     time.Duration
	}
	Identity struct {
		LoginURL       string // external provider login page
		ProfileURL     string // external profile endpoint called with the bearer token
		AppRedirectURL string // where the provider sends users back with ?token=
		GoogleClientID string // enables Google ID token exchange when set
	}
	Events struct {
		AMQPURL  string // empty disables publishing
		Exchange string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays int
	}
)

// NewConfig loads configuration from the environment, after merging an
// optional .env file, and validates required keys.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Configuration("failed to load .env: %v", err)
	}
	return newConfig(viper.New())
}

func newConfig(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("log_level", "info")

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_url", "")

	// Ledger defaults (STUDENT_BORROW_LIMIT intentionally has none)
	v.SetDefault("max_loan_days", 0)
	v.SetDefault("ledger_tx_timeout", "5s")

	v.SetDefault("sweep_enabled", true)
	v.SetDefault("sweep_schedule", DefaultSweepSchedule)

	// Auth defaults
	v.SetDefault("jwt_expiry", "24h")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_callback_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("identity_login_url", "")
	v.SetDefault("identity_profile_url", "")
	v.SetDefault("app_redirect_url", "")
	v.SetDefault("google_client_id", "")

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "lms.events")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 90)

	cfg := &Config{
		HTTP: HTTP{
			Port:        v.GetInt32("PORT"),
			Host:        v.GetString("HOST"),
			FrontendURL: v.GetString("FRONTEND_URL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
		},
		Database: Database{
			Driver: DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
			URL:    v.GetString("DATABASE_URL"),
		},
		Ledger: Ledger{
			MaxLoanDays: v.GetInt("MAX_LOAN_DAYS"),
			TxTimeout:   v.GetDuration("LEDGER_TX_TIMEOUT"),
		},
		Sweep: Sweep{
			Enabled:  v.GetBool("SWEEP_ENABLED"),
			Schedule: v.GetString("SWEEP_SCHEDULE"),
		},
		Auth: Auth{
			JWTSecret:           v.GetString("JWT_SECRET"),
			TokenExpiry:         v.GetDuration("JWT_EXPIRY"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			MaxCallbackAttempts: v.GetInt("AUTH_MAX_CALLBACK_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Identity: Identity{
			LoginURL:       v.GetString("IDENTITY_LOGIN_URL"),
			ProfileURL:     v.GetString("IDENTITY_PROFILE_URL"),
			AppRedirectURL: v.GetString("APP_REDIRECT_URL"),
			GoogleClientID: v.GetString("GOOGLE_CLIENT_ID"),
		},
		Events: Events{
			AMQPURL:  v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}

	var errs []error

	limit, err := requiredPositiveInt(v, "STUDENT_BORROW_LIMIT")
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Ledger.StudentBorrowLimit = limit

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks keys that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, apperr.Configuration("JWT_SECRET is required"))
	}
	if c.Ledger.TxTimeout <= 0 {
		errs = append(errs, apperr.Configuration("LEDGER_TX_TIMEOUT must be positive"))
	}
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, apperr.Configuration("DATABASE_PATH is required for sqlite"))
		}
	case DatabaseDriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, apperr.Configuration("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, apperr.Configuration("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func requiredPositiveInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, apperr.Configuration("%s is required", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Configuration("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
