package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/database"
)

// backendPingTimeout bounds the connectivity probe against the configured backend
const backendPingTimeout = 5 * time.Second

// ValidationResult represents the result of a config validation
type ValidationResult struct {
	Path     string
	Valid    bool
	Error    error
	Warnings []string
	// Config holds the parsed configuration when validation succeeds
	Config *config.Config
}

// validateConfigs validates the configuration file, data directory, and backend
func (c *Checker) validateConfigs() error {
	configResult := c.validateConfigYaml()
	c.report.AddValidationResult(configResult)
	printValidationResult(configResult)

	if !configResult.Valid {
		return fmt.Errorf("%s validation failed: %w", c.configPath, configResult.Error)
	}

	dirResult := c.validateDataDir(configResult.Config)
	c.report.AddValidationResult(dirResult)
	printValidationResult(dirResult)

	if !dirResult.Valid {
		return fmt.Errorf("data directory check failed: %w", dirResult.Error)
	}

	backendResult := c.validateBackend(configResult.Config)
	c.report.AddValidationResult(backendResult)
	printValidationResult(backendResult)

	if !backendResult.Valid {
		return fmt.Errorf("backend check failed: %w", backendResult.Error)
	}

	return nil
}

// validateConfigYaml validates the main configuration file
func (c *Checker) validateConfigYaml() ValidationResult {
	path := c.configPath
	result := ValidationResult{Path: path}

	// Check if file exists
	if !fileExists(path) {
		result.Valid = false
		result.Error = fmt.Errorf("file does not exist")
		return result
	}

	// Try to load the config
	cfg, err := config.Load(path)
	if err != nil {
		result.Valid = false
		result.Error = fmt.Errorf("format error: %v", err)
		return result
	}

	if err := config.ValidateDatabaseConfig(&cfg.Database); err != nil {
		result.Valid = false
		result.Error = err
		return result
	}

	result.Valid = true
	result.Config = cfg

	if cfg.Admin != nil && cfg.Admin.Enabled && cfg.Admin.JWTSecret == "" {
		result.Warnings = append(result.Warnings,
			"jwt_secret is empty; a secret will be generated on first start")
	}

	return result
}

// validateDataDir checks that the directory holding file-backed databases is writable
func (c *Checker) validateDataDir(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: "data directory"}

	switch cfg.Database.Backend {
	case consts.BackendSQLite, consts.BackendDocument:
		dir := filepath.Dir(cfg.Database.Path)
		result.Path = dir
		if err := checkDataDirWritable(dir); err != nil {
			result.Valid = false
			result.Error = err
			return result
		}
	default:
		// Memory and Postgres backends have no local data directory
		result.Path = fmt.Sprintf("data directory (not used by %s backend)", cfg.Database.Backend)
	}

	result.Valid = true
	return result
}

// validateBackend opens the configured database backend and pings it
func (c *Checker) validateBackend(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: fmt.Sprintf("database backend (%s)", cfg.Database.Backend)}

	db, err := database.Open(cfg.Database)
	if err != nil {
		result.Valid = false
		result.Error = fmt.Errorf("cannot open backend: %v", err)
		return result
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), backendPingTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		result.Valid = false
		result.Error = fmt.Errorf("backend is not reachable: %v", err)
		return result
	}

	result.Valid = true
	return result
}

// validateYamlSyntax validates YAML syntax
func validateYamlSyntax(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}

	var content interface{}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("YAML syntax error: %w", err)
	}

	return nil
}

// printValidationResult prints the validation result
func printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if result.Valid {
		green.Printf("  ✓ %s\n", result.Path)
	} else if result.Error != nil {
		red.Printf("  ✗ %s: %v\n", result.Path, result.Error)
	} else {
		yellow.Printf("  ⚠ %s\n", result.Path)
	}

	// Print warnings if any
	for _, warning := range result.Warnings {
		yellow.Printf("    └─ %s\n", warning)
	}
}
