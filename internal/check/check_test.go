package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rebatetrack/rebatetrack/internal/config"
)

// TestNewChecker tests the NewChecker function
func TestNewChecker(t *testing.T) {
	checker := NewChecker()
	if checker == nil {
		t.Fatal("NewChecker returned nil")
	}
	if checker.configPath != config.DefaultConfigPath {
		t.Errorf("Expected configPath %q, got %q", config.DefaultConfigPath, checker.configPath)
	}
	if checker.report == nil {
		t.Error("Report should be initialized")
	}
}

// TestNewCheckerWithPath tests the NewCheckerWithPath function
func TestNewCheckerWithPath(t *testing.T) {
	checker := NewCheckerWithPath("custom/path.yaml")
	if checker.configPath != "custom/path.yaml" {
		t.Errorf("Expected configPath 'custom/path.yaml', got %q", checker.configPath)
	}
	if checker.ConfigPath() != "custom/path.yaml" {
		t.Errorf("ConfigPath() = %q, want 'custom/path.yaml'", checker.ConfigPath())
	}
}

// TestRequiredFiles tests the RequiredFiles method
func TestRequiredFiles(t *testing.T) {
	checker := NewChecker()
	files := checker.RequiredFiles()

	if len(files) != 1 {
		t.Errorf("Expected 1 required file, got %d", len(files))
	}

	if files[0].Path != config.DefaultConfigPath {
		t.Errorf("First file should be %s, got %s", config.DefaultConfigPath, files[0].Path)
	}
}

// TestFileExists tests the fileExists function
func TestFileExists(t *testing.T) {
	// Test with existing file
	tmpFile := filepath.Join(t.TempDir(), "test_exists.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if !fileExists(tmpFile) {
		t.Error("fileExists should return true for existing file")
	}

	// Test with non-existing file
	if fileExists("/non/existent/file.txt") {
		t.Error("fileExists should return false for non-existing file")
	}
}

// TestEnsureDir tests the ensureDir function
func TestEnsureDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "subdir")

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := ensureDir(testFile); err != nil {
		t.Errorf("ensureDir failed: %v", err)
	}

	// Check directory was created
	if _, err := os.Stat(tmpDir); os.IsNotExist(err) {
		t.Error("Directory should have been created")
	}
}

// TestRunNonInteractive_MissingConfig tests the non-interactive check with no config file
func TestRunNonInteractive_MissingConfig(t *testing.T) {
	checker := NewCheckerWithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	result := checker.RunNonInteractive()

	if result.Success {
		t.Error("RunNonInteractive should fail when the config file is missing")
	}
	if len(result.Errors) == 0 {
		t.Error("Expected at least one error")
	}
	if len(result.Suggestions) == 0 {
		t.Error("Expected a suggestion pointing at the check command")
	}
}

// TestRunNonInteractive_ValidConfig tests the non-interactive check with a valid config
func TestRunNonInteractive_ValidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rebatetrack.yaml")
	content := `
database:
  backend: memory
admin:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	checker := NewCheckerWithPath(configPath)
	result := checker.RunNonInteractive()

	if !result.Success {
		t.Errorf("RunNonInteractive failed: %v", result.Errors)
	}
}

// TestRunNonInteractive_CredentialWarnings tests that missing admin credentials
// produce warnings without blocking startup
func TestRunNonInteractive_CredentialWarnings(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rebatetrack.yaml")
	content := `
database:
  backend: memory
admin:
  enabled: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	checker := NewCheckerWithPath(configPath)
	result := checker.RunNonInteractive()

	if !result.Success {
		t.Errorf("RunNonInteractive failed: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected warnings about missing admin credentials")
	}
}

// TestPrintCheckResult tests that printing does not panic
func TestPrintCheckResult(t *testing.T) {
	PrintCheckResult(&CheckResult{
		Success:     false,
		Errors:      []string{"config not found"},
		Warnings:    []string{"admin username not set"},
		Suggestions: []string{"run the check command"},
	})
}
