// Package configfiles provides embedded configuration templates.
// These files seed user configuration on first run.
package configfiles

import (
	"embed"
	"os"
	"path/filepath"
)

//go:embed config.example.yaml
var configFS embed.FS

// GetConfigExample returns the example configuration file content
func GetConfigExample() ([]byte, error) {
	return configFS.ReadFile("config.example.yaml")
}

// InitConfig writes the example configuration to targetPath unless a file
// already exists there. Returns true when a new file was created.
func InitConfig(targetPath string) (bool, error) {
	if _, err := os.Stat(targetPath); err == nil {
		return false, nil
	}

	data, err := GetConfigExample()
	if err != nil {
		return false, err
	}

	if dir := filepath.Dir(targetPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, err
		}
	}

	if err := os.WriteFile(targetPath, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}
