package sqlstore

import (
	"fmt"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// dialect abstracts the driver-specific corners: driver registration
// name, data source shaping and catalog introspection. The DML itself is
// portable and shared.
type dialect interface {
	name() string
	driver() string
	dataSource(dsn string) string
	listTablesQuery() string
	tableExistsQuery() string
}

func dialectFor(backend string) (dialect, error) {
	switch backend {
	case consts.BackendSQLite:
		return sqliteDialect{}, nil
	case consts.BackendPostgres:
		return postgresDialect{}, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("unknown relational backend %q", backend))
	}
}

type sqliteDialect struct{}

func (sqliteDialect) name() string   { return consts.BackendSQLite }
func (sqliteDialect) driver() string { return "sqlite" }

// dataSource enables foreign keys and a busy timeout on the file DSN.
func (sqliteDialect) dataSource(dsn string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn)
}

func (sqliteDialect) listTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (sqliteDialect) tableExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

type postgresDialect struct{}

func (postgresDialect) name() string   { return consts.BackendPostgres }
func (postgresDialect) driver() string { return "postgres" }

func (postgresDialect) dataSource(dsn string) string {
	return dsn
}

func (postgresDialect) listTablesQuery() string {
	return "SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename"
}

func (postgresDialect) tableExistsQuery() string {
	return "SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?"
}
