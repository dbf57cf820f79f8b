package check

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCheckFile_ExistingFile tests the checkFile method with existing file
func TestCheckFile_ExistingFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "rebatetrack.yaml")
	if err := os.WriteFile(tmpFile, []byte("database:\n  backend: memory"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	checker := NewCheckerWithPath(tmpFile)

	fileConfig := FileConfig{
		Path:        tmpFile,
		Description: "Test config file",
	}

	result := checker.checkFile(fileConfig)

	if !result.Exists {
		t.Error("checkFile should detect existing file")
	}
	if result.Created {
		t.Error("checkFile should not mark existing file as created")
	}
	if result.Error != nil {
		t.Errorf("checkFile should not return error for existing file: %v", result.Error)
	}
	if result.Path != tmpFile {
		t.Errorf("checkFile result.Path = %s, want %s", result.Path, tmpFile)
	}
}

// TestCheckFiles tests the checkFiles method with an existing config file
func TestCheckFiles(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "rebatetrack.yaml")
	if err := os.WriteFile(tmpFile, []byte("database:\n  backend: memory"), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	checker := NewCheckerWithPath(tmpFile)

	if err := checker.checkFiles(); err != nil {
		t.Errorf("checkFiles failed for existing file: %v", err)
	}
	if len(checker.report.FileResults) != 1 {
		t.Errorf("Expected 1 file result, got %d", len(checker.report.FileResults))
	}
}

// TestCheckDataDirWritable tests the data directory probe
func TestCheckDataDirWritable(t *testing.T) {
	t.Run("existing writable directory", func(t *testing.T) {
		if err := checkDataDirWritable(t.TempDir()); err != nil {
			t.Errorf("checkDataDirWritable failed: %v", err)
		}
	})

	t.Run("missing directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		if err := checkDataDirWritable(dir); err != nil {
			t.Errorf("checkDataDirWritable failed: %v", err)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Directory should have been created")
		}
	})

	t.Run("current directory is skipped", func(t *testing.T) {
		if err := checkDataDirWritable("."); err != nil {
			t.Errorf("checkDataDirWritable failed for '.': %v", err)
		}
	})
}

// TestFileCheckResult tests FileCheckResult struct
func TestFileCheckResult(t *testing.T) {
	result := FileCheckResult{
		Path:        "test.yaml",
		Exists:      true,
		Created:     false,
		Description: "Test file",
		Error:       nil,
	}

	if result.Path != "test.yaml" {
		t.Errorf("FileCheckResult.Path = %s, want test.yaml", result.Path)
	}
	if !result.Exists {
		t.Error("FileCheckResult.Exists should be true")
	}
	if result.Created {
		t.Error("FileCheckResult.Created should be false")
	}
	if result.Error != nil {
		t.Errorf("FileCheckResult.Error should be nil, got %v", result.Error)
	}
}

// TestFileConfig tests FileConfig struct
func TestFileConfig(t *testing.T) {
	config := FileConfig{
		Path:        "test.yaml",
		Description: "Test description",
	}

	if config.Path != "test.yaml" {
		t.Errorf("FileConfig.Path = %s, want test.yaml", config.Path)
	}
	if config.Description != "Test description" {
		t.Errorf("FileConfig.Description = %s, want Test description", config.Description)
	}
}
