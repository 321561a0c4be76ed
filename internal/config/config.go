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

// ConfigFileEnv names the optional TOML file whose values sit between the
// built-in defaults and environment variables.
const ConfigFileEnv = "FINTRACK_CONFIG"

type Config struct {
	// HTTP Server
	Port               string   `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	RateLimitRPM       int      `toml:"rate_limit_rpm"`

	// Storage
	DataBackend  string `toml:"data_backend"`
	SQLiteDBPath string `toml:"sqlite_db_path"`
	DatabaseURL  string `toml:"database_url"`

	// Auth
	JWTSecret string        `toml:"jwt_secret"`
	JWTTTL    time.Duration `toml:"jwt_ttl"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets mirror
	GoogleSpreadsheetID      string        `toml:"google_spreadsheet_id"`
	GoogleServiceAccountFile string        `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string        `toml:"-"`
	GoogleOAuthClientFile    string        `toml:"google_oauth_client_file"`
	GoogleOAuthTokenFile     string        `toml:"google_oauth_token_file"`
	MirrorInterval           time.Duration `toml:"mirror_interval"`
	WorkerMetricsPort        string        `toml:"worker_metrics_port"` // worker /metrics, off when empty

	// Reports
	ExportMaxRecords int           `toml:"export_max_records"`
	ExportTimeout    time.Duration `toml:"export_timeout"`
	SummaryCacheTTL  time.Duration `toml:"summary_cache_ttl"`
	SummaryCacheSize int           `toml:"summary_cache_size"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:               "8080",
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPM:       60,

		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/fintrack.db",

		JWTTTL: 7 * 24 * time.Hour,

		AMQPExchange: "fintrack",
		AMQPQueue:    "mirror_transactions",

		MirrorInterval: 10 * time.Minute,

		ExportMaxRecords: 5000,
		ExportTimeout:    20 * time.Second,
		SummaryCacheTTL:  5 * time.Minute,
		SummaryCacheSize: 1000,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load layers defaults, the optional TOML file named by FINTRACK_CONFIG and
// environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTTTL = getEnvDuration("JWT_TTL", cfg.JWTTTL)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)
	cfg.GoogleOAuthClientFile = getEnv("GOOGLE_OAUTH_CLIENT_FILE", cfg.GoogleOAuthClientFile)
	cfg.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", cfg.GoogleOAuthTokenFile)
	cfg.MirrorInterval = getEnvDuration("MIRROR_INTERVAL", cfg.MirrorInterval)
	cfg.WorkerMetricsPort = getEnv("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)

	cfg.ExportMaxRecords = getEnvInt("EXPORT_MAX_RECORDS", cfg.ExportMaxRecords)
	cfg.ExportTimeout = getEnvDuration("EXPORT_TIMEOUT", cfg.ExportTimeout)
	cfg.SummaryCacheTTL = getEnvDuration("SUMMARY_CACHE_TTL", cfg.SummaryCacheTTL)
	cfg.SummaryCacheSize = getEnvInt("SUMMARY_CACHE_SIZE", cfg.SummaryCacheSize)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// MirrorEnabled reports whether the spreadsheet mirror has what it needs.
func (c *Config) MirrorEnabled() bool {
	if c.GoogleSpreadsheetID == "" {
		return false
	}
	return c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "" ||
		(c.GoogleOAuthClientFile != "" && c.GoogleOAuthTokenFile != "")
}

// Validate checks everything shared by the server, the worker and the CLI.
func (c *Config) Validate() error {
	return joinProblems(c.problems())
}

// ValidateWorker additionally requires the broker and the spreadsheet.
func (c *Config) ValidateWorker() error {
	errors := c.problems()
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the mirror worker")
	}
	if !c.MirrorEnabled() {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID and Google credentials are required by the mirror worker")
	}
	return joinProblems(errors)
}

// ValidateServer additionally requires the token signing settings.
func (c *Config) ValidateServer() error {
	errors := c.problems()
	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters (set JWT_SECRET)")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}
	return joinProblems(errors)
}

func joinProblems(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) problems() []string {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "postgres", "sqlite"}
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

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// URL")
		}
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

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if (c.GoogleOAuthClientFile == "") != (c.GoogleOAuthTokenFile == "") {
		errors = append(errors, "GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE must be set together")
	}
	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	}

	if c.ExportMaxRecords < 1 {
		errors = append(errors, fmt.Sprintf("invalid export max records %d: must be at least 1", c.ExportMaxRecords))
	}
	if c.ExportTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export timeout %v: must be at least 1 second", c.ExportTimeout))
	}
	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}
	return errors
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

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
