// Package planner builds parameterized CRUD statements for reflected entities.
// Statements are assembled with squirrel in the dialect's placeholder format;
// bound values are cast, JSON encoded, or wrapped as arrays per column.
package planner

import (
	"errors"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"daogen/internal/introspection"
	"daogen/internal/sqlutil"
)

var (
	// ErrMissingColumn is returned when an insert omits a column that has no
	// default and is not nullable.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNothingToUpdate is returned when an update has no column to set.
	ErrNothingToUpdate = errors.New("nothing to update")
	// ErrUnidentifiable is returned when a row cannot be matched: no key
	// values and no snapshot.
	ErrUnidentifiable = errors.New("record cannot be identified")
)

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []any
}

// Planner builds statements for one dialect.
type Planner struct {
	dialect sqlutil.Dialect
}

// New returns a Planner for dialect.
func New(dialect sqlutil.Dialect) *Planner {
	return &Planner{dialect: dialect}
}

// Dialect returns the planner's dialect.
func (p *Planner) Dialect() sqlutil.Dialect {
	return p.dialect
}

func (p *Planner) quote(name string) string {
	return p.dialect.QuoteIdentifier(name)
}

func (p *Planner) toSQL(b sq.Sqlizer) (SQLQuery, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// orderedColumns returns the entity columns present in values, in table order.
func orderedColumns(entity *introspection.Entity, values map[string]any) []introspection.Column {
	cols := make([]introspection.Column, 0, len(values))
	for _, col := range entity.Columns {
		if _, ok := values[col.Name]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

func sortedNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
