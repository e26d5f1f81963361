// Package introspection reflects table metadata from a live database.
// It reports each column's name, whether it may be omitted on insert, whether it
// belongs to the primary key and its source type, for Postgres, MySQL/TiDB and SQLite.
package introspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"daogen/internal/dbexec"
	"daogen/internal/sqltype"
	"daogen/internal/sqlutil"
)

// ErrEntityNotFound is returned when reflection yields no columns for a table.
var ErrEntityNotFound = errors.New("entity not found")

// Column describes one reflected table column.
type Column struct {
	Name string
	// Elidable is true when the column has a default or is nullable, so an
	// insert may omit it and read the value back.
	Elidable     bool
	IsPrimaryKey bool
	// SourceType is the database's own type name (e.g. int4, varchar, _text).
	SourceType string
	// Cast is the type name bound values are cast to, empty when none.
	Cast   string
	IsJSON bool
}

// Entity is the reflected metadata of one table.
type Entity struct {
	Name    string
	Columns []Column
	// Keys holds the primary key column names sorted ascending.
	Keys []string
}

// Queryer is the subset of an executor needed for reflection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (dbexec.Rows, error)
}

// Options controls a single reflection.
type Options struct {
	Dialect sqlutil.Dialect
	// Casts maps column names to an explicit cast type, overriding detected ones.
	Casts  map[string]string
	Logger *slog.Logger
}

// NewEntity builds an Entity from reflected columns, deriving the sorted key set.
func NewEntity(name string, columns []Column) *Entity {
	keys := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.IsPrimaryKey {
			keys = append(keys, col.Name)
		}
	}
	sort.Strings(keys)
	return &Entity{Name: name, Columns: columns, Keys: keys}
}

// Column returns the named column.
func (e *Entity) Column(name string) (Column, bool) {
	for _, col := range e.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in table order.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, col := range e.Columns {
		names[i] = col.Name
	}
	return names
}

// HasKeys reports whether the entity has a primary key.
func (e *Entity) HasKeys() bool {
	return len(e.Keys) > 0
}

// Reflect loads the column metadata of table using the dialect's catalog.
func Reflect(ctx context.Context, db Queryer, table string, opts Options) (*Entity, error) {
	ctx, span := startSpan(ctx, "introspection.reflect",
		attribute.String("db.system", string(opts.Dialect)),
		attribute.String("db.table", table),
	)
	defer span.End()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		columns []Column
		err     error
	)
	switch opts.Dialect {
	case sqlutil.Postgres:
		columns, err = postgresColumns(ctx, db, table)
	case sqlutil.MySQL:
		columns, err = mysqlColumns(ctx, db, table, logger)
	case sqlutil.SQLite:
		columns, err = sqliteColumns(ctx, db, table)
	default:
		err = fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("reflect %s: %w", table, err)
	}
	if len(columns) == 0 {
		err := fmt.Errorf("%w: %s", ErrEntityNotFound, table)
		recordSpanError(span, err)
		return nil, err
	}

	for i := range columns {
		columns[i].IsJSON = sqltype.IsJSON(columns[i].SourceType)
		if cast, ok := opts.Casts[columns[i].Name]; ok {
			columns[i].Cast = cast
			continue
		}
		if opts.Dialect == sqlutil.Postgres && sqltype.Map(columns[i].SourceType) == sqltype.Array {
			columns[i].Cast = columns[i].SourceType
		}
	}

	entity := NewEntity(table, columns)
	span.SetAttributes(attribute.Int("db.columns", len(columns)))
	logger.Debug("reflected entity",
		slog.String("table", table),
		slog.Int("columns", len(columns)),
		slog.String("keys", strings.Join(entity.Keys, ",")),
	)
	return entity, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("daogen/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
