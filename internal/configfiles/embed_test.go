package configfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGetConfigExample(t *testing.T) {
	data, err := GetConfigExample()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// The embedded template must be valid YAML
	var parsed map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, "server")
	assert.Contains(t, parsed, "database")
	assert.Contains(t, parsed, "short_links")
}

func TestInitConfig(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config", "rebatetrack.yaml")

	created, err := InitConfig(target)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// Second run must not overwrite
	require.NoError(t, os.WriteFile(target, []byte("server:\n  port: 1\n"), 0644))
	created, err = InitConfig(target)
	require.NoError(t, err)
	assert.False(t, created)

	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "server:\n  port: 1\n", string(data))
}
