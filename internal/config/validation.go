// Package config provides configuration management for the application.
// This file contains validation functions for configuration values.
package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// MinJWTSecretLength is the minimum required length for JWT secret (256 bits for HS256)
const MinJWTSecretLength = 32

// PasswordRequirements defines the password complexity requirements
type PasswordRequirements struct {
	MinLength        int    // Minimum password length
	RequireUppercase bool   // Require at least one uppercase letter
	RequireLowercase bool   // Require at least one lowercase letter
	RequireDigit     bool   // Require at least one digit
	RequireSpecial   bool   // Require at least one special character
	SpecialChars     string // Allowed special characters
}

// DefaultPasswordRequirements returns the default password complexity requirements
func DefaultPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
		SpecialChars:     "!@#$%^&*()_+-=[]{}|;:,.<>?",
	}
}

// ValidatePassword validates a password against the complexity requirements
// Returns nil if password is valid, otherwise returns an error describing the failure
func ValidatePassword(password string, req PasswordRequirements) error {
	var failures []string

	if len(password) < req.MinLength {
		failures = append(failures, fmt.Sprintf("at least %d characters", req.MinLength))
	}

	if req.RequireUppercase && !containsFunc(password, unicode.IsUpper) {
		failures = append(failures, "at least one uppercase letter (A-Z)")
	}
	if req.RequireLowercase && !containsFunc(password, unicode.IsLower) {
		failures = append(failures, "at least one lowercase letter (a-z)")
	}
	if req.RequireDigit && !containsFunc(password, unicode.IsDigit) {
		failures = append(failures, "at least one digit (0-9)")
	}
	if req.RequireSpecial {
		hasSpecial := containsFunc(password, func(r rune) bool {
			return strings.ContainsRune(req.SpecialChars, r)
		})
		if !hasSpecial {
			failures = append(failures, fmt.Sprintf("at least one special character (%s)", req.SpecialChars))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("password must contain: %s", strings.Join(failures, ", "))
	}

	return nil
}

func containsFunc(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if fn(r) {
			return true
		}
	}
	return false
}

// ValidateDatabaseConfig validates the database backend selection
func ValidateDatabaseConfig(cfg *DatabaseConfig) *errors.AppError {
	switch cfg.Backend {
	case consts.BackendMemory:
		return nil
	case consts.BackendSQLite, consts.BackendDocument:
		if strings.TrimSpace(cfg.Path) == "" {
			return errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("database.path is required for the %s backend", cfg.Backend))
		}
		return nil
	case consts.BackendPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return errors.New(errors.ErrCodeConfigInvalid,
				"database.dsn is required for the postgres backend")
		}
		return nil
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown database backend %q (expected memory, sqlite, postgres, or document)", cfg.Backend))
	}
}

// ValidateAdminConfig validates the admin configuration
// Returns an error if admin is enabled but credentials are invalid
func ValidateAdminConfig(cfg *AdminConfig) *errors.AppError {
	// Skip validation if admin is not enabled
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if strings.TrimSpace(cfg.Username) == "" {
		return errors.New(errors.ErrCodeAdminCredentialsEmpty,
			"admin username cannot be empty when admin endpoints are enabled")
	}

	if strings.TrimSpace(cfg.PasswordHash) == "" {
		return errors.New(errors.ErrCodeAdminCredentialsEmpty,
			"admin password_hash cannot be empty when admin endpoints are enabled")
	}
	if !IsValidBcryptHash(cfg.PasswordHash) {
		return errors.New(errors.ErrCodeConfigInvalid,
			"admin password_hash is not a valid bcrypt hash")
	}

	// Validate JWT secret (required for secure token signing)
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			"jwt_secret cannot be empty when admin endpoints are enabled")
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			fmt.Sprintf("jwt_secret must be at least %d characters long for security (HS256 requires 256 bits)", MinJWTSecretLength))
	}

	return nil
}

// Validate checks the whole configuration for startup-blocking problems
func (c *Config) Validate() *errors.AppError {
	if err := ValidateDatabaseConfig(&c.Database); err != nil {
		return err
	}
	if err := ValidateAdminConfig(c.Admin); err != nil {
		return err
	}
	if c.ShortLinks.TTLHours <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"short_links.ttl_hours must be positive")
	}
	return nil
}

// IsValidBcryptHash checks if a string is a valid bcrypt hash
// Bcrypt hashes start with $2a$, $2b$, or $2y$ followed by cost factor
func IsValidBcryptHash(hash string) bool {
	if len(hash) < 60 {
		return false
	}
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") && !strings.HasPrefix(hash, "$2y$") {
		return false
	}
	return true
}

// FormatPasswordRequirements returns a human-readable description of password requirements
func FormatPasswordRequirements() string {
	req := DefaultPasswordRequirements()
	var requirements []string

	requirements = append(requirements, fmt.Sprintf("- At least %d characters long", req.MinLength))

	if req.RequireUppercase {
		requirements = append(requirements, "- Contains at least one uppercase letter (A-Z)")
	}
	if req.RequireLowercase {
		requirements = append(requirements, "- Contains at least one lowercase letter (a-z)")
	}
	if req.RequireDigit {
		requirements = append(requirements, "- Contains at least one digit (0-9)")
	}
	if req.RequireSpecial {
		requirements = append(requirements, fmt.Sprintf("- Contains at least one special character (%s)", req.SpecialChars))
	}

	return strings.Join(requirements, "\n")
}
