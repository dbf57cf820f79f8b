package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebatetrack/rebatetrack/consts"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rebatetrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, consts.BackendSQLite, cfg.Database.Backend)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.Equal(t, 72, cfg.ShortLinks.TTLHours)
	assert.Equal(t, "0 * * * *", cfg.ShortLinks.CleanupSchedule)
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, 24, cfg.Admin.TokenExpiration)
	assert.False(t, cfg.Notifications.IsEnabled())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9000
  debug: true
database:
  backend: memory
short_links:
  ttl_hours: 12
  cleanup_schedule: "*/30 * * * *"
notifications:
  events:
    - refund.recorded
  webhook:
    url: https://hooks.example.com/rebates
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, consts.BackendMemory, cfg.Database.Backend)
	assert.Equal(t, 12, cfg.ShortLinks.TTLHours)
	assert.Equal(t, "*/30 * * * *", cfg.ShortLinks.CleanupSchedule)
	assert.True(t, cfg.Notifications.IsEnabled())
	assert.True(t, cfg.Notifications.HasEvent(NotificationEventRefundRecorded))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadKeepsDefaultsForOmittedSections(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, consts.BackendSQLite, cfg.Database.Backend)
	assert.Equal(t, 72, cfg.ShortLinks.TTLHours)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_RT_DSN", "postgres://app:secret@db:5432/rebates")

	path := writeConfigFile(t, `
database:
  backend: postgres
  dsn: ${TEST_RT_DSN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:secret@db:5432/rebates", cfg.Database.DSN)
}

func TestLoadExpandsEnvVarDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: ${TEST_RT_UNSET_HOST:-192.168.1.1}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
}

func TestExpandEnvVarsLeavesBcryptHashesAlone(t *testing.T) {
	// $2a$10$... must survive expansion untouched since only ${VAR} is matched
	hash := "$2a$10$N9qo8uLOickgx2ZMRZoMye"
	assert.Equal(t, hash, expandEnvVars(hash))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RT_SERVER_PORT", "9999")
	t.Setenv("RT_DATABASE_BACKEND", "document")
	t.Setenv("RT_ADMIN_USERNAME", "operator")
	t.Setenv("RT_LOG_LEVEL", "debug")

	path := writeConfigFile(t, `
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, consts.BackendDocument, cfg.Database.Backend)
	assert.Equal(t, "operator", cfg.Admin.Username)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestAddress(t *testing.T) {
	sc := ServerConfig{Host: "localhost", Port: 8080}
	assert.Equal(t, "localhost:8080", sc.Address())
}

func TestExists(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 1\n")
	assert.True(t, Exists(path))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestUpdateJWTSecretInConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
admin:
  enabled: true
  username: admin
`)

	require.NoError(t, UpdateJWTSecretInConfig(path, "new-secret-value-0123456789abcdef"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new-secret-value-0123456789abcdef", cfg.Admin.JWTSecret)
	// Other fields are preserved
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "admin", cfg.Admin.Username)
}
