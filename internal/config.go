package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DukeRupert/presskit/internal/worker"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Operator notifications
	EmailProvider   string // "smtp", "sendgrid" or "none"
	OperatorEmail   string // Recipient of usage alerts
	SlackWebhookURL string // Optional Slack incoming webhook

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// SendGrid Configuration
	SendGridAPIKey string

	// Usage check schedule
	UsageCheckEnabled     bool
	UsageCheckHour        int
	UsageCheckMinute      int
	UsageCheckLocation    *time.Location
	UsageCheckTimeout     time.Duration
	UsageCheckConcurrency int
	UsageNotifyDedupe     bool // false notifies on every pass
	UsageExportEnabled    bool

	// Storage Configuration (usage reports)
	StorageProvider  string // "local" or "r2"
	LocalStoragePath string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string // Optional, for other S3-compatible stores

	// Operator endpoint authentication.
	// If both are empty, the endpoints are unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
	AdminUsername   string
	AdminPassword   string

	// API rate limiting, per client IP
	APIRateLimit  int
	APIRateWindow time.Duration

	// Honor X-Forwarded-For and X-Real-IP for the client address.
	// Enable only behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		EmailProvider:   getEnv("EMAIL_PROVIDER", "smtp"),
		OperatorEmail:   getEnv("OPERATOR_EMAIL", ""),
		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "alerts@presskit.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Presskit"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		UsageCheckEnabled:     getEnvBool("USAGE_CHECK_ENABLED", true),
		UsageCheckTimeout:     getEnvDuration("USAGE_CHECK_TIMEOUT", 30*time.Minute),
		UsageCheckConcurrency: getEnvInt("USAGE_CHECK_CONCURRENCY", 1),
		UsageNotifyDedupe:     getEnvBool("USAGE_NOTIFY_DEDUPE", true),
		UsageExportEnabled:    getEnvBool("USAGE_EXPORT_ENABLED", true),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
		AdminUsername:   getEnv("ADMIN_USERNAME", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),

		APIRateLimit:  getEnvInt("API_RATE_LIMIT", 120),
		APIRateWindow: getEnvDuration("API_RATE_WINDOW", time.Minute),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate usage check schedule
	hour, minute, err := worker.ParseTimeOfDay(getEnv("USAGE_CHECK_TIME", "09:00"))
	if err != nil {
		return nil, fmt.Errorf("USAGE_CHECK_TIME: %w", err)
	}
	cfg.UsageCheckHour, cfg.UsageCheckMinute = hour, minute

	tz := getEnv("USAGE_CHECK_TIMEZONE", "UTC")
	cfg.UsageCheckLocation, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("USAGE_CHECK_TIMEZONE: unknown time zone %q", tz)
	}

	if cfg.UsageCheckConcurrency < 1 {
		return nil, fmt.Errorf("USAGE_CHECK_CONCURRENCY must be at least 1, got %d", cfg.UsageCheckConcurrency)
	}

	if cfg.APIRateLimit < 1 {
		return nil, fmt.Errorf("API_RATE_LIMIT must be at least 1, got %d", cfg.APIRateLimit)
	}
	if cfg.APIRateWindow <= 0 {
		return nil, fmt.Errorf("API_RATE_WINDOW must be positive, got %s", cfg.APIRateWindow)
	}

	// Validate notification channels
	switch cfg.EmailProvider {
	case "smtp":
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER is 'sendgrid'")
		}
	case "none":
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be 'smtp', 'sendgrid' or 'none', got: %s", cfg.EmailProvider)
	}
	if cfg.EmailProvider != "none" && cfg.OperatorEmail == "" {
		return nil, fmt.Errorf("OPERATOR_EMAIL is required when EMAIL_PROVIDER is '%s'", cfg.EmailProvider)
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" && cfg.R2Endpoint == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID or R2_ENDPOINT is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	return cfg, nil
}

// WorkerConfig returns the schedule of the daily usage check.
func (c *Config) WorkerConfig() worker.Config {
	wc := worker.DefaultConfig()
	wc.Hour = c.UsageCheckHour
	wc.Minute = c.UsageCheckMinute
	wc.Location = c.UsageCheckLocation
	wc.RunTimeout = c.UsageCheckTimeout
	return wc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
