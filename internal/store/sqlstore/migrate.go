package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/internal/model"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// migration is one schema step. Each runs its statements and advances the
// single-row schema_version table inside its own transaction.
type migration struct {
	version     int
	description string
	statements  []string
}

// Column types are chosen to be valid on PostgreSQL and to map onto the
// right SQLite type affinities.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema",
		statements: []string{
			`CREATE TABLE schema_version (
				id INTEGER PRIMARY KEY,
				version INTEGER NOT NULL,
				description TEXT NOT NULL
			)`,
			`CREATE TABLE testers (
				uuid TEXT PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`CREATE TABLE id_mappings (
				id TEXT PRIMARY KEY,
				tester_uuid TEXT NOT NULL REFERENCES testers(uuid)
			)`,
			`CREATE INDEX idx_id_mappings_tester_uuid ON id_mappings(tester_uuid)`,
			`CREATE TABLE purchases (
				id TEXT PRIMARY KEY,
				tester_uuid TEXT NOT NULL REFERENCES testers(uuid),
				date TIMESTAMP NOT NULL,
				order_number TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				amount DOUBLE PRECISION NOT NULL DEFAULT 0,
				screenshot TEXT NOT NULL DEFAULT '',
				refunded BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX idx_purchases_tester_uuid ON purchases(tester_uuid)`,
			`CREATE TABLE feedbacks (
				purchase_id TEXT PRIMARY KEY REFERENCES purchases(id),
				date TIMESTAMP NOT NULL,
				feedback TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE publications (
				purchase_id TEXT PRIMARY KEY REFERENCES purchases(id),
				date TIMESTAMP NOT NULL,
				screenshot TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE refunds (
				purchase_id TEXT PRIMARY KEY REFERENCES purchases(id),
				date TIMESTAMP NOT NULL,
				refund_date TIMESTAMP NOT NULL,
				amount DOUBLE PRECISION NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		version:     2,
		description: "add screenshot_summary to purchases",
		statements: []string{
			`ALTER TABLE purchases ADD COLUMN screenshot_summary TEXT NOT NULL DEFAULT ''`,
		},
	},
	{
		version:     3,
		description: "add transaction_id to refunds",
		statements: []string{
			`ALTER TABLE refunds ADD COLUMN transaction_id TEXT NOT NULL DEFAULT ''`,
		},
	},
	{
		version:     4,
		description: "add short_links",
		statements: []string{
			`CREATE TABLE short_links (
				code TEXT PRIMARY KEY,
				purchase_id TEXT NOT NULL REFERENCES purchases(id),
				created_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX idx_short_links_purchase_id ON short_links(purchase_id)`,
		},
	},
}

var latestVersion = migrations[len(migrations)-1].version

// migrate brings the schema up to the latest version. Already-applied
// steps are skipped; the terminal state is reported, never an error.
func (s *DB) migrate(ctx context.Context) error {
	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return errors.Wrap(errors.ErrCodeDBMigration,
				fmt.Sprintf("migration to version %d failed", m.version), err)
		}
		line := fmt.Sprintf("migrated to version %d: %s", m.version, m.description)
		s.report = append(s.report, line)
		logger.Info("schema migration applied",
			zap.Int("version", m.version),
			zap.String("description", m.description))
	}

	s.report = append(s.report, fmt.Sprintf("schema up to date at version %d", latestVersion))
	return nil
}

// currentVersion reads the schema version; 0 means a fresh database.
func (s *DB) currentVersion(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.rebind(s.dialect.tableExistsQuery()), "schema_version")
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBMigration, "failed to inspect schema", err)
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	err = s.db.GetContext(ctx, &version, s.rebind("SELECT version FROM schema_version WHERE id = 1"))
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBMigration, "failed to read schema version", err)
	}
	return version, nil
}

// apply runs one migration in its own transaction and advances the
// version row.
func (s *DB) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if m.version == 1 {
		_, err = tx.ExecContext(ctx,
			s.rebind("INSERT INTO schema_version (id, version, description) VALUES (1, ?, ?)"),
			m.version, m.description)
	} else {
		_, err = tx.ExecContext(ctx,
			s.rebind("UPDATE schema_version SET version = ?, description = ? WHERE id = 1"),
			m.version, m.description)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// MigrationReport returns the report lines from the startup migration run.
func (s *DB) MigrationReport() []string {
	return append([]string(nil), s.report...)
}

// SchemaVersion returns the current schema version row.
func (s *DB) SchemaVersion(ctx context.Context) (*model.SchemaVersion, error) {
	var v model.SchemaVersion
	err := s.db.GetContext(ctx, &v, s.rebind("SELECT id, version, description FROM schema_version WHERE id = 1"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to read schema version", err)
	}
	return &v, nil
}

// Tables lists the table names present in the database.
func (s *DB) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	if err := s.db.SelectContext(ctx, &tables, s.dialect.listTablesQuery()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to list tables", err)
	}
	return tables, nil
}
