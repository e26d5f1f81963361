// Package sqlutil provides SQL dialect helpers: identifier quoting,
// placeholder formats, and cast syntax for the supported stores.
package sqlutil

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Dialect names a supported relational store.
type Dialect string

const (
	// Postgres is PostgreSQL (pgx driver).
	Postgres Dialect = "postgres"
	// MySQL covers MySQL and TiDB (go-sql-driver/mysql).
	MySQL Dialect = "mysql"
	// SQLite is SQLite (modernc.org/sqlite).
	SQLite Dialect = "sqlite"
)

// ParseDialect resolves a dialect name, accepting common driver aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx", "pg":
		return Postgres, nil
	case "mysql", "tidb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q (use postgres, mysql or sqlite)", name)
	}
}

// DriverName returns the database/sql driver name registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// QuoteIdentifier quotes a table, alias, or column name for the dialect.
// Names that already carry the dialect's quote characters are returned unchanged.
func (d Dialect) QuoteIdentifier(name string) string {
	q := d.identQuote()
	if len(name) >= 2 && strings.HasPrefix(name, q) && strings.HasSuffix(name, q) {
		return name
	}
	if d == Postgres {
		return pq.QuoteIdentifier(name)
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// identQuote returns the identifier quote character of the dialect.
func (d Dialect) identQuote() string {
	if d == MySQL {
		return "`"
	}
	return `"`
}

// PlaceholderFormat returns the squirrel placeholder format for the dialect.
func (d Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// Bindvar renders the n-th (1-based) positional parameter marker.
func (d Dialect) Bindvar(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Cast wraps a value expression in a type cast.
func (d Dialect) Cast(expr, typeName string) string {
	if typeName == "" {
		return expr
	}
	if d == Postgres {
		return expr + "::" + typeName
	}
	return "CAST(" + expr + " AS " + typeName + ")"
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (d Dialect) SupportsReturning() bool {
	return d == Postgres || d == SQLite
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}
