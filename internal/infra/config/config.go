package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Mail drivers accepted in MAIL_DRIVER.
const (
	MailDriverSMTP = "smtp"
	MailDriverSES  = "ses"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	CronSpecReminder string
	RunTimeout       time.Duration

	// Reminder holds only the REMINDER_* variables that are set, keyed the
	// way the reminder expects them (message, subject, from_email, from_name).
	Reminder           map[string]any
	ReminderConfigFile string

	MailDriver   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
	AWSRegion    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ClaimTTL      time.Duration

	TelegramToken   string
	AdminTelegramID int64 // 0 disables operator alerts

	MetricsAddr string
}

var reminderEnvKeys = map[string]string{
	"REMINDER_MESSAGE":    "message",
	"REMINDER_SUBJECT":    "subject",
	"REMINDER_FROM_EMAIL": "from_email",
	"REMINDER_FROM_NAME":  "from_name",
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecReminder = os.Getenv("CRON_SPEC_REMINDER")
	if cfg.CronSpecReminder == "" {
		cfg.CronSpecReminder = "0 */12 * * *" // Default: twice daily
	}

	if cfg.RunTimeout, err = durationEnv("RUN_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Reminder = make(map[string]any)
	for env, key := range reminderEnvKeys {
		if v, ok := os.LookupEnv(env); ok {
			cfg.Reminder[key] = v
		}
	}
	cfg.ReminderConfigFile = os.Getenv("REMINDER_CONFIG_FILE")

	cfg.MailDriver = strings.ToLower(os.Getenv("MAIL_DRIVER"))
	if cfg.MailDriver == "" {
		cfg.MailDriver = MailDriverSMTP
	}
	switch cfg.MailDriver {
	case MailDriverSMTP:
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is not set")
		}
		if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
			return nil, err
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
		if cfg.SMTPUseTLS, err = boolEnv("SMTP_USE_TLS", true); err != nil {
			return nil, err
		}
	case MailDriverSES:
		cfg.AWSRegion = os.Getenv("AWS_REGION")
		if cfg.AWSRegion == "" {
			return nil, fmt.Errorf("AWS_REGION is not set")
		}
	default:
		return nil, fmt.Errorf("invalid MAIL_DRIVER %q: expected %q or %q", cfg.MailDriver, MailDriverSMTP, MailDriverSES)
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ClaimTTL, err = durationEnv("CLAIM_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.AdminTelegramID != 0 && cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set but ADMIN_TELEGRAM_ID is")
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

// AlertsEnabled reports whether run summaries should be posted to Telegram.
func (c *AppConfig) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.AdminTelegramID != 0
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func boolEnv(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return v, nil
}
