package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"daogen/internal/introspection"
)

// SelectOptions shapes a Select.
type SelectOptions struct {
	// Exclude drops columns from the select list.
	Exclude []string
	OrderBy []string
	Limit   uint64
	Offset  uint64
}

// Select builds a SELECT of the entity's columns filtered by cond, which may
// be nil, a SQL string with ? placeholders, or a column filter map.
func (p *Planner) Select(entity *introspection.Entity, cond any, args []any, opts SelectOptions) (SQLQuery, error) {
	skip := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		skip[name] = struct{}{}
	}
	columns := make([]string, 0, len(entity.Columns))
	for _, col := range entity.Columns {
		if _, ok := skip[col.Name]; ok {
			continue
		}
		columns = append(columns, p.quote(col.Name))
	}
	if len(columns) == 0 {
		return SQLQuery{}, fmt.Errorf("no columns selected from %s", entity.Name)
	}

	builder := sq.Select(columns...).
		From(p.quote(entity.Name)).
		PlaceholderFormat(p.dialect.PlaceholderFormat())

	where, err := p.condition(entity, cond, args)
	if err != nil {
		return SQLQuery{}, err
	}
	if where != nil {
		builder = builder.Where(where)
	}
	if len(opts.OrderBy) > 0 {
		builder = builder.OrderBy(opts.OrderBy...)
	}
	if opts.Limit > 0 {
		builder = builder.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		builder = builder.Offset(opts.Offset)
	}
	return p.toSQL(builder)
}

// condition normalizes a caller condition into a squirrel predicate. Nil and
// empty conditions return nil.
func (p *Planner) condition(entity *introspection.Entity, cond any, args []any) (sq.Sqlizer, error) {
	switch c := cond.(type) {
	case nil:
		return nil, nil
	case string:
		if c == "" {
			return nil, nil
		}
		return sq.Expr(c, args...), nil
	case map[string]any:
		if len(c) == 0 {
			return nil, nil
		}
		return p.Where(entity, c)
	case sq.Sqlizer:
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported condition type %T", cond)
	}
}

// IsEmptyCondition reports whether cond selects every row.
func IsEmptyCondition(cond any) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case string:
		return c == ""
	case map[string]any:
		return len(c) == 0
	}
	return false
}
