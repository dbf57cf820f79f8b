// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// Default configuration values
const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultDatabasePath     = "./data/rebatetrack.db"
	defaultTokenExpiry      = 24
	defaultShortLinkTTL     = 72
	defaultCleanupSchedule  = "0 * * * *"
	defaultOTLPEndpoint     = "localhost:4317"
	defaultPrometheusPort   = 9090
	defaultNotifyTimeoutSec = 10
)

// DefaultConfigPath is the default path for the configuration file
const DefaultConfigPath = "config/rebatetrack.yaml"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Admin         *AdminConfig       `yaml:"admin"`
	ShortLinks    ShortLinkConfig    `yaml:"short_links"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       logger.Config      `yaml:"logging"`
	Telemetry     telemetry.Config   `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"` // Allowed CORS origins whitelist
}

// DatabaseConfig selects and parameterizes the storage backend
type DatabaseConfig struct {
	// Backend is one of: memory, sqlite, postgres, document
	Backend string `yaml:"backend"`
	// Path is the database file path (sqlite and document backends)
	Path string `yaml:"path"`
	// DSN is the connection string (postgres backend)
	DSN string `yaml:"dsn"`
}

// AdminConfig holds admin console configuration
type AdminConfig struct {
	Enabled         bool   `yaml:"enabled"`       // Enable admin endpoints
	Username        string `yaml:"username"`      // Admin username
	PasswordHash    string `yaml:"password_hash"` // Admin password (bcrypt hash)
	JWTSecret       string `yaml:"jwt_secret"`    // JWT signing secret
	TokenExpiration int    `yaml:"expiry_hours"`  // Token expiration in hours
}

// ShortLinkConfig holds public short-link settings
type ShortLinkConfig struct {
	// TTLHours is how long a minted code stays resolvable
	TTLHours int `yaml:"ttl_hours"`
	// CleanupSchedule is the cron expression for the expired-code sweep
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// NotificationEvent represents the type of event to notify
type NotificationEvent string

const (
	// NotificationEventRefundRecorded fires after a refund is recorded
	NotificationEventRefundRecorded NotificationEvent = "refund.recorded"
)

// NotificationConfig holds outbound notification configuration.
// An empty webhook URL disables notifications.
type NotificationConfig struct {
	// Events specifies which events trigger notifications
	Events []NotificationEvent `yaml:"events"`

	// Webhook is the delivery target
	Webhook WebhookNotificationConfig `yaml:"webhook"`
}

// WebhookNotificationConfig holds webhook notification settings
type WebhookNotificationConfig struct {
	// URL is the webhook endpoint URL
	URL string `yaml:"url"`
	// Secret is optional, used for HMAC signature verification
	Secret string `yaml:"secret"`
	// TimeoutSeconds bounds each delivery attempt
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// IsEnabled returns true if notifications are enabled
func (c *NotificationConfig) IsEnabled() bool {
	return c.Webhook.URL != ""
}

// HasEvent returns true if the specified event is in the events list
func (c *NotificationConfig) HasEvent(event NotificationEvent) bool {
	for _, e := range c.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  defaultHost,
			Port:  defaultPort,
			Debug: false,
			CORSOrigins: []string{
				"http://localhost:8080",
			},
		},
		Database: DatabaseConfig{
			Backend: consts.BackendSQLite,
			Path:    defaultDatabasePath,
		},
		Admin: &AdminConfig{
			Enabled:         false,
			Username:        "admin",
			PasswordHash:    "",
			JWTSecret:       "",
			TokenExpiration: defaultTokenExpiry,
		},
		ShortLinks: ShortLinkConfig{
			TTLHours:        defaultShortLinkTTL,
			CleanupSchedule: defaultCleanupSchedule,
		},
		Notifications: NotificationConfig{
			Events: []NotificationEvent{},
			Webhook: WebhookNotificationConfig{
				TimeoutSeconds: defaultNotifyTimeoutSec,
			},
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    100, // Max 100MB per log file
			MaxAge:     7,   // Retain logs for 7 days
			MaxBackups: 5,   // Keep 5 backup files
			Compress:   false,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Enabled:  false,
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Enabled: false,
				Port:    defaultPrometheusPort,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion
func Load(path string) (*Config, error) {
	cfg := Default()

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables in the configuration
	expanded := expandEnvVars(string(data))

	// Parse YAML
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Exists checks if a configuration file exists at the given path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values
// Only matches ${VAR_NAME} format (not $VAR_NAME) to avoid conflicts with special characters like bcrypt hashes
func expandEnvVars(content string) string {
	// Match ${VAR_NAME} patterns only (not $VAR_NAME to avoid bcrypt hash conflicts)
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := match[2 : len(match)-1]

		// Support default values: ${VAR_NAME:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return default value if provided
		if len(parts) > 1 {
			return parts[1]
		}

		return ""
	})
}

// applyEnvOverrides applies RT_* environment variable overrides:
//   - RT_SERVER_HOST, RT_SERVER_PORT, RT_SERVER_DEBUG
//   - RT_DATABASE_BACKEND, RT_DATABASE_PATH, RT_DATABASE_DSN
//   - RT_ADMIN_USERNAME, RT_ADMIN_PASSWORD_HASH, RT_ADMIN_JWT_SECRET
//   - RT_LOG_LEVEL, RT_LOG_FORMAT, RT_LOG_FILE
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if v := os.Getenv("RT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RT_SERVER_DEBUG"); v != "" {
		cfg.Server.Debug = parseBool(v)
	}

	// Database overrides
	if v := os.Getenv("RT_DATABASE_BACKEND"); v != "" {
		cfg.Database.Backend = v
	}
	if v := os.Getenv("RT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Admin overrides
	if cfg.Admin != nil {
		if v := os.Getenv("RT_ADMIN_USERNAME"); v != "" {
			cfg.Admin.Username = v
		}
		if v := os.Getenv("RT_ADMIN_PASSWORD_HASH"); v != "" {
			cfg.Admin.PasswordHash = v
		}
		if v := os.Getenv("RT_ADMIN_JWT_SECRET"); v != "" {
			cfg.Admin.JWTSecret = v
		}
	}

	// Logging overrides
	if v := os.Getenv("RT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RT_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// parseBool parses a boolean string value
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UpdateJWTSecretInConfig updates the jwt_secret field in the config file.
// It uses YAML parsing to safely update only the jwt_secret field while preserving all other fields.
func UpdateJWTSecretInConfig(configPath, jwtSecret string) error {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	// Parse YAML into a generic map to preserve all fields
	var cfg map[string]interface{}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return err
	}

	// Get or create admin section
	adminSection, ok := cfg["admin"].(map[string]interface{})
	if !ok {
		adminSection = make(map[string]interface{})
		cfg["admin"] = adminSection
	}

	// Update only the jwt_secret field, preserving all other fields
	adminSection["jwt_secret"] = jwtSecret

	newContent, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, newContent, 0644)
}
