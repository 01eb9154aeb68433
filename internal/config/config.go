// Package config loads payminder settings from the environment and an
// optional TOML file. Environment variables win over the file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Ledger backends.
const (
	BackendExcel  = "excel"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Ledgers
	DataBackend         string
	DataDir             string
	UpcomingHorizonDays int
	Sheets              []SheetLedger

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SMTP
	SMTPServer       string
	SMTPPort         int
	SenderEmail      string
	EmailAppPassword string
	CompanyName      string

	// Google Sheets credentials: a service account, or a user token saved
	// by sheets-login
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Worker
	ReminderInterval time.Duration

	// ConfigFile is the TOML file that was read, or "" if none was found.
	ConfigFile string
}

// SheetLedger is one Google Sheets tab holding a city's payments.
type SheetLedger struct {
	SpreadsheetID string `toml:"spreadsheet_id"`
	Sheet         string `toml:"sheet"`
	City          string `toml:"city"`
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	CompanyName string        `toml:"company_name"`
	HorizonDays int           `toml:"horizon_days"`
	DataDir     string        `toml:"data_dir"`
	Sheets      []SheetLedger `toml:"sheets"`
}

// ConfigDir returns the XDG config directory for payminder.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "payminder")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "payminder")
}

// ConfigPath returns PAYMINDER_CONFIG or the default file location.
func ConfigPath() string {
	return getEnv("PAYMINDER_CONFIG", filepath.Join(ConfigDir(), "config.toml"))
}

// Load builds the configuration from defaults, the TOML file at
// ConfigPath (if present) and the environment, in increasing precedence.
func Load() (*Config, error) {
	file, path, err := readFile(ConfigPath())
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:         getEnv("DATA_BACKEND", BackendExcel),
		DataDir:             getEnv("PAYMINDER_DATA_DIR", orDefault(file.DataDir, "payment_data")),
		UpcomingHorizonDays: getEnvInt("UPCOMING_HORIZON_DAYS", orDefaultInt(file.HorizonDays, 7)),
		Sheets:              file.Sheets,

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/payminder.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "payminder"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		SMTPServer:       getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SenderEmail:      getEnv("SENDER_EMAIL", ""),
		EmailAppPassword: getEnv("EMAIL_APP_PASSWORD", ""),
		CompanyName:      getEnv("COMPANY_NAME", orDefault(file.CompanyName, "Our Company")),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", 24*time.Hour),

		ConfigFile: path,
	}
	return cfg, nil
}

func readFile(path string) (fileConfig, string, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, "", nil
		}
		return fc, "", fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, "", fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc, path, nil
}

// Save writes the file-backed settings of c to path.
func Save(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(fileConfig{
		CompanyName: c.CompanyName,
		HorizonDays: c.UpcomingHorizonDays,
		DataDir:     c.DataDir,
		Sheets:      c.Sheets,
	})
}

// EmailConfigured reports whether SMTP credentials are present.
func (c *Config) EmailConfigured() bool {
	return c.SenderEmail != "" && c.EmailAppPassword != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendExcel, BackendSheets, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendExcel && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using excel backend")
	}

	if c.DataBackend == BackendSheets {
		if len(c.Sheets) == 0 {
			errors = append(errors, "at least one [[sheets]] entry is required when using sheets backend")
		}
		for i, s := range c.Sheets {
			if s.SpreadsheetID == "" {
				errors = append(errors, fmt.Sprintf("sheets[%d]: spreadsheet_id is required", i))
			}
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasUserToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
		if !hasServiceAccount && !hasUserToken {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE (or a GOOGLE_OAUTH_TOKEN_FILE from sheets-login) must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.UpcomingHorizonDays < 0 {
		errors = append(errors, fmt.Sprintf("invalid upcoming horizon %d: must not be negative", c.UpcomingHorizonDays))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	if c.SenderEmail != "" && !strings.Contains(c.SenderEmail, "@") {
		errors = append(errors, fmt.Sprintf("invalid sender email '%s'", c.SenderEmail))
	}

	if c.ReminderInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 minute", c.ReminderInterval))
	} else if c.ReminderInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at most 7 days", c.ReminderInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
