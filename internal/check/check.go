// Package check provides interactive environment checking and initialization.
// It helps users set up their local RebateTrack configuration properly.
package check

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/rebatetrack/rebatetrack/internal/config"
)

// CheckResult represents the result of a non-interactive environment check
type CheckResult struct {
	// Success indicates whether all required checks passed
	Success bool
	// Errors contains critical errors that prevent server startup
	Errors []string
	// Warnings contains non-critical issues that don't block startup
	Warnings []string
	// Suggestions contains helpful tips for fixing issues
	Suggestions []string
}

// Checker handles environment checking and initialization
type Checker struct {
	// configPath is the configuration file to check
	configPath string
	// report collects check results for final output
	report *Report
	// theme for consistent styling
	theme *huh.Theme
}

// NewChecker creates a new environment checker
func NewChecker() *Checker {
	return NewCheckerWithPath(config.DefaultConfigPath)
}

// NewCheckerWithPath creates a checker for a specific config file
func NewCheckerWithPath(configPath string) *Checker {
	return &Checker{
		configPath: configPath,
		report:     NewReport(),
		theme:      huh.ThemeCharm(),
	}
}

// Run executes the full environment check
func (c *Checker) Run() error {
	// Print header
	c.printHeader()

	// Step 1: Check and create the configuration file
	fmt.Println()
	printSection("Checking configuration file")
	if err := c.checkFiles(); err != nil {
		return fmt.Errorf("file check failed: %w", err)
	}

	// Step 2: Validate configuration format and database backend
	fmt.Println()
	printSection("Validating configuration")
	if err := c.validateConfigs(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Step 3: Print final report
	fmt.Println()
	c.report.Print()

	return nil
}

// printHeader prints the welcome header
func (c *Checker) printHeader() {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Println(titleStyle.Render("🔍 RebateTrack Environment Check"))
}

// printSection prints a section header
func printSection(title string) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	fmt.Println(style.Render(title + "..."))
}

// ConfigPath returns the path to the config file being checked
func (c *Checker) ConfigPath() string {
	return c.configPath
}

// RequiredFiles returns the list of required configuration files
func (c *Checker) RequiredFiles() []FileConfig {
	return []FileConfig{
		{
			Path:        c.configPath,
			Description: "Main configuration file (server, database, admin, short links)",
		},
	}
}

// confirmCreate asks user to confirm file creation
func confirmCreate(path string) (bool, error) {
	var confirm bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Create %s from template?", path)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ensureDir creates directory if it doesn't exist
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// RunNonInteractive performs a non-interactive environment check.
// Unlike Run(), this method does not prompt for user input and does not create files.
// It returns a CheckResult with errors, warnings, and suggestions.
func (c *Checker) RunNonInteractive() *CheckResult {
	result := &CheckResult{
		Success:     true,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		Suggestions: make([]string, 0),
	}

	// Step 1: Check if the configuration file exists
	c.checkFilesNonInteractive(result)

	// If required files are missing, return early with suggestions
	if !result.Success {
		result.Suggestions = append(result.Suggestions,
			"Run 'rebatetrack check' to interactively create the configuration file",
		)
		return result
	}

	// Step 2: Validate configuration format, backend, and data directory
	c.validateConfigsNonInteractive(result)

	// Step 3: Check credentials (as warnings, not errors)
	c.checkCredentialsNonInteractive(result)

	return result
}

// checkFilesNonInteractive checks if the configuration file exists
func (c *Checker) checkFilesNonInteractive(result *CheckResult) {
	if !fileExists(c.configPath) {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Configuration file not found: %s", c.configPath))
	}
}

// validateConfigsNonInteractive validates configuration format and backend reachability
func (c *Checker) validateConfigsNonInteractive(result *CheckResult) {
	configResult := c.validateConfigYaml()
	if !configResult.Valid {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Invalid %s: %v", c.configPath, configResult.Error))
		return
	}

	dirResult := c.validateDataDir(configResult.Config)
	if !dirResult.Valid {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Data directory check failed: %v", dirResult.Error))
	}

	backendResult := c.validateBackend(configResult.Config)
	if !backendResult.Valid {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Database backend check failed: %v", backendResult.Error))
	}
}

// checkCredentialsNonInteractive checks credentials as warnings (not blocking errors)
func (c *Checker) checkCredentialsNonInteractive(result *CheckResult) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		// Config already validated, this shouldn't fail
		return
	}

	// Note: jwt_secret will be auto-generated if empty during server startup

	if cfg.Admin != nil && cfg.Admin.Enabled {
		if cfg.Admin.Username == "" {
			result.Warnings = append(result.Warnings,
				"Admin username not set")
		}
		if cfg.Admin.PasswordHash == "" {
			result.Warnings = append(result.Warnings,
				"Admin password hash not set; admin login will be rejected")
		}
	}

	if !cfg.Notifications.IsEnabled() {
		result.Warnings = append(result.Warnings,
			"Webhook notifications disabled (no URL configured)")
	}
}

// PrintCheckResult prints the check result in a formatted way
func PrintCheckResult(result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Print errors
	if len(result.Errors) > 0 {
		fmt.Println()
		red.Println("[ERROR] Environment check failed")
		fmt.Println()
		for _, err := range result.Errors {
			red.Printf("  ✗ %s\n", err)
		}
	}

	// Print warnings
	if len(result.Warnings) > 0 {
		fmt.Println()
		yellow.Println("[WARNING] Configuration warnings:")
		fmt.Println()
		for _, warn := range result.Warnings {
			yellow.Printf("  ⚠ %s\n", warn)
		}
	}

	// Print suggestions
	if len(result.Suggestions) > 0 {
		cyan.Println("\nTo fix these issues:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  → %s\n", suggestion)
		}
	}

	fmt.Println()
}
