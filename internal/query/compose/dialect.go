package compose

import (
	"strings"

	"github.com/tabloader/tabloader/pkg/types"
)

// Dialect defines the SQL flavor-specific parts of a statement.
type Dialect interface {
	// Name identifies the dialect, e.g. "postgres".
	Name() string
	// QuoteIdentifier wraps a table or column name in the dialect's identifier quotes.
	QuoteIdentifier(name string) string
	// Placeholder returns the named parameter marker for name.
	Placeholder(name string) string
}

var (
	// Postgres uses double-quoted identifiers and @name placeholders, which is
	// the syntax pgx rewrites when a pgx.NamedArgs is passed to Exec or Query.
	Postgres Dialect = PostgresDialect{}
	// SQLite uses double-quoted identifiers and :name placeholders.
	SQLite Dialect = SQLiteDialect{}
)

// PostgresDialect implements Dialect for PostgreSQL through pgx.
type PostgresDialect struct{}

// Name returns "postgres".
func (PostgresDialect) Name() string { return "postgres" }

// QuoteIdentifier returns "name" with embedded quotes doubled.
func (PostgresDialect) QuoteIdentifier(name string) string {
	return quoteDouble(name)
}

// Placeholder returns @name.
func (PostgresDialect) Placeholder(name string) string {
	return "@" + name
}

// SQLiteDialect implements Dialect for SQLite through database/sql.
type SQLiteDialect struct{}

// Name returns "sqlite3".
func (SQLiteDialect) Name() string { return "sqlite3" }

// QuoteIdentifier returns "name" with embedded quotes doubled.
func (SQLiteDialect) QuoteIdentifier(name string) string {
	return quoteDouble(name)
}

// Placeholder returns :name.
func (SQLiteDialect) Placeholder(name string) string {
	return ":" + name
}

// DialectFor returns the dialect registered for a driver name.
func DialectFor(driver string) (Dialect, bool) {
	canonical, _ := types.CanonicalDriver(driver)
	switch canonical {
	case types.DriverPostgres:
		return Postgres, true
	case types.DriverSQLite:
		return SQLite, true
	}
	return nil, false
}

func quoteDouble(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
