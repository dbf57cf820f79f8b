package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

func TestOpenMemory(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Backend: consts.BackendMemory})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, consts.BackendMemory, db.Backend())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "rebates.db")
	db, err := Open(config.DatabaseConfig{Backend: consts.BackendSQLite, Path: path})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, consts.BackendSQLite, db.Backend())
	assert.NoError(t, db.Ping(context.Background()))

	// The relational backend carries the backup and schema capabilities
	_, ok := db.(store.Backuper)
	assert.True(t, ok)
	_, ok = db.(store.SchemaIntrospector)
	assert.True(t, ok)
}

func TestOpenDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebates.db")
	db, err := Open(config.DatabaseConfig{Backend: consts.BackendDocument, Path: path})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, consts.BackendDocument, db.Backend())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpenMissingParameters(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Backend: consts.BackendSQLite})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))

	_, err = Open(config.DatabaseConfig{Backend: consts.BackendPostgres})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))

	_, err = Open(config.DatabaseConfig{Backend: consts.BackendDocument})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Backend: "cassandra"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
	assert.Contains(t, err.Error(), "cassandra")
}
