// Package gormstore implements the store contract on GORM with the
// pure-Go glebarez SQLite driver. The schema is managed by AutoMigrate,
// relation lookups replace the relational backend's joins, and
// multi-statement sequences run inside db.Transaction.
package gormstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// DB is the document-style database.
type DB struct {
	db *gorm.DB
}

// Open opens the database file and migrates the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBMigration, "failed to migrate schema", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Testers() store.TesterStore           { return &testerStore{d.db} }
func (d *DB) IDMappings() store.IDMappingStore     { return &idMappingStore{d.db} }
func (d *DB) Purchases() store.PurchaseStore       { return &purchaseStore{d.db} }
func (d *DB) Feedbacks() store.FeedbackStore       { return &feedbackStore{d.db} }
func (d *DB) Publications() store.PublicationStore { return &publicationStore{d.db} }
func (d *DB) Refunds() store.RefundStore           { return &refundStore{d.db} }
func (d *DB) ShortLinks() store.ShortLinkStore     { return &shortLinkStore{d.db} }

// Backend returns the backend name.
func (d *DB) Backend() string {
	return consts.BackendDocument
}

// Reset is not supported on the document backend.
func (d *DB) Reset(ctx context.Context) error {
	return errors.ErrUnsupported("reset", consts.BackendDocument)
}

// RawData is not supported on the document backend.
func (d *DB) RawData(ctx context.Context) (*model.Backup, error) {
	return nil, errors.ErrUnsupported("raw data dump", consts.BackendDocument)
}

// Ping verifies the underlying connection.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to access connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database unreachable", err)
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
