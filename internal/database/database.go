// Package database selects and opens the storage backend from configuration.
// All callers go through Open and program against the store.Database contract;
// backend-specific capabilities are discovered via interface assertion.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/internal/store/gormstore"
	"github.com/rebatetrack/rebatetrack/internal/store/memstore"
	"github.com/rebatetrack/rebatetrack/internal/store/sqlstore"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// Open opens the backend named by cfg.Backend.
func Open(cfg config.DatabaseConfig) (store.Database, error) {
	logger.Info("Opening database", zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case consts.BackendMemory:
		return memstore.Open(), nil

	case consts.BackendSQLite:
		if cfg.Path == "" {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "database.path is required for the sqlite backend")
		}
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return sqlstore.Open(consts.BackendSQLite, cfg.Path)

	case consts.BackendPostgres:
		if cfg.DSN == "" {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "database.dsn is required for the postgres backend")
		}
		return sqlstore.Open(consts.BackendPostgres, cfg.DSN)

	case consts.BackendDocument:
		if cfg.Path == "" {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "database.path is required for the document backend")
		}
		return gormstore.Open(cfg.Path)

	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown database backend %q (expected memory, sqlite, postgres, or document)", cfg.Backend))
	}
}

// ensureDir creates the parent directory of a database file path
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create database directory", zap.Error(err), zap.String("dir", dir))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}
	return nil
}
