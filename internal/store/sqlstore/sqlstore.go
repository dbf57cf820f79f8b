// Package sqlstore implements the store contract on a relational database
// through sqlx. Two dialects are supported: pure-Go SQLite (glebarez)
// for single-file deployments and PostgreSQL (lib/pq) for shared ones.
// Queries are written with ? placeholders and rebound per driver. Schema
// lifecycle is handled by versioned startup migrations (see migrate.go).
package sqlstore

import (
	"context"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

func init() {
	// The glebarez driver registers as "sqlite", which sqlx does not know
	// a bind type for.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB is the relational database.
type DB struct {
	db      *sqlx.DB
	dialect dialect
	report  []string
}

// Open connects to the database for the given backend name, applies
// pending migrations and returns the ready store. backend selects the
// dialect: "sqlite" treats dsn as a file path, "postgres" as a
// connection URL.
func Open(backend, dsn string) (*DB, error) {
	d, err := dialectFor(backend)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.driver(), d.dataSource(dsn))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &DB{db: db, dialect: d}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database opened",
		zap.String("backend", backend),
		zap.Int("schema_version", latestVersion))
	return s, nil
}

func (s *DB) Testers() store.TesterStore           { return &testerStore{s} }
func (s *DB) IDMappings() store.IDMappingStore     { return &idMappingStore{s} }
func (s *DB) Purchases() store.PurchaseStore       { return &purchaseStore{s} }
func (s *DB) Feedbacks() store.FeedbackStore       { return &feedbackStore{s} }
func (s *DB) Publications() store.PublicationStore { return &publicationStore{s} }
func (s *DB) Refunds() store.RefundStore           { return &refundStore{s} }
func (s *DB) ShortLinks() store.ShortLinkStore     { return &shortLinkStore{s} }

// Backend returns the backend name the store was opened with.
func (s *DB) Backend() string {
	return s.dialect.name()
}

// Reset is not supported on the relational backend.
func (s *DB) Reset(ctx context.Context) error {
	return errors.ErrUnsupported("reset", s.dialect.name())
}

// RawData is not supported on the relational backend; use BackupJSON.
func (s *DB) RawData(ctx context.Context) (*model.Backup, error) {
	return nil, errors.ErrUnsupported("raw data dump", s.dialect.name())
}

// Ping verifies the connection.
func (s *DB) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database unreachable", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *DB) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to the driver's bind style.
func (s *DB) rebind(query string) string {
	return s.db.Rebind(query)
}
