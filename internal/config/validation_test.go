package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// bcrypt hash of "Password1!" at cost 10, used as a structurally valid fixture
const testBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func TestValidatePassword(t *testing.T) {
	req := DefaultPasswordRequirements()

	assert.NoError(t, ValidatePassword("Passw0rd!", req))

	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"too short", "Ab1!", "at least 8 characters"},
		{"no uppercase", "password1!", "uppercase"},
		{"no lowercase", "PASSWORD1!", "lowercase"},
		{"no digit", "Password!", "digit"},
		{"no special", "Password1", "special character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDatabaseConfig(t *testing.T) {
	assert.Nil(t, ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendMemory}))
	assert.Nil(t, ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendSQLite, Path: "./data/test.db"}))
	assert.Nil(t, ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendDocument, Path: "./data/test.db"}))
	assert.Nil(t, ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendPostgres, DSN: "postgres://localhost/rebates"}))

	err := ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendSQLite})
	require.NotNil(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, err.Code)

	err = ValidateDatabaseConfig(&DatabaseConfig{Backend: consts.BackendPostgres})
	require.NotNil(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, err.Code)

	err = ValidateDatabaseConfig(&DatabaseConfig{Backend: "cassandra"})
	require.NotNil(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, err.Code)
	assert.Contains(t, err.Message, "cassandra")
}

func TestValidateAdminConfigDisabled(t *testing.T) {
	assert.Nil(t, ValidateAdminConfig(nil))
	assert.Nil(t, ValidateAdminConfig(&AdminConfig{Enabled: false}))
}

func TestValidateAdminConfig(t *testing.T) {
	valid := &AdminConfig{
		Enabled:      true,
		Username:     "admin",
		PasswordHash: testBcryptHash,
		JWTSecret:    strings.Repeat("s", MinJWTSecretLength),
	}
	assert.Nil(t, ValidateAdminConfig(valid))

	tests := []struct {
		name   string
		mutate func(*AdminConfig)
		code   errors.ErrorCode
	}{
		{"empty username", func(c *AdminConfig) { c.Username = " " }, errors.ErrCodeAdminCredentialsEmpty},
		{"empty password hash", func(c *AdminConfig) { c.PasswordHash = "" }, errors.ErrCodeAdminCredentialsEmpty},
		{"malformed password hash", func(c *AdminConfig) { c.PasswordHash = "plaintext-password" }, errors.ErrCodeConfigInvalid},
		{"empty jwt secret", func(c *AdminConfig) { c.JWTSecret = "" }, errors.ErrCodeJWTSecretInvalid},
		{"short jwt secret", func(c *AdminConfig) { c.JWTSecret = "short" }, errors.ErrCodeJWTSecretInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			err := ValidateAdminConfig(&cfg)
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.Validate())

	cfg.ShortLinks.TTLHours = 0
	err := cfg.Validate()
	require.NotNil(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, err.Code)

	cfg = Default()
	cfg.Database.Backend = "unknown"
	require.NotNil(t, cfg.Validate())
}

func TestIsValidBcryptHash(t *testing.T) {
	assert.True(t, IsValidBcryptHash(testBcryptHash))
	assert.False(t, IsValidBcryptHash("plaintext"))
	assert.False(t, IsValidBcryptHash("$2a$10$tooshort"))
	assert.False(t, IsValidBcryptHash("$1a$10$"+strings.Repeat("x", 53)))
}

func TestFormatPasswordRequirements(t *testing.T) {
	out := FormatPasswordRequirements()
	assert.Contains(t, out, "8 characters")
	assert.Contains(t, out, "uppercase")
	assert.Contains(t, out, "digit")
}
