package planner

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"daogen/internal/introspection"
	"daogen/internal/sqlutil"
)

// InsertPlan is an insert statement plus the columns it reads back.
type InsertPlan struct {
	SQLQuery
	// Returning lists the elided columns named in RETURNING, in table order.
	// Empty when the dialect has no RETURNING.
	Returning []string
	// Elided lists every column the insert omitted.
	Elided []string
}

// Insert builds an INSERT for values keyed by column name. Every column
// must be present or elidable; elided columns are read back with RETURNING
// where the dialect supports it. Values for unknown columns are ignored.
func (p *Planner) Insert(entity *introspection.Entity, values map[string]any) (InsertPlan, error) {
	var (
		names  []string
		exprs  []any
		elided []string
	)
	for _, col := range entity.Columns {
		v, ok := values[col.Name]
		if !ok {
			if !col.Elidable {
				return InsertPlan{}, fmt.Errorf("%w: %s.%s", ErrMissingColumn, entity.Name, col.Name)
			}
			elided = append(elided, col.Name)
			continue
		}
		expr, err := valueExpr(p.dialect, col, v)
		if err != nil {
			return InsertPlan{}, err
		}
		names = append(names, p.quote(col.Name))
		exprs = append(exprs, expr)
	}

	plan := InsertPlan{Elided: elided}
	var returning string
	if p.dialect.SupportsReturning() && len(elided) > 0 {
		quoted := make([]string, len(elided))
		for i, name := range elided {
			quoted[i] = p.quote(name)
		}
		returning = "RETURNING " + strings.Join(quoted, ", ")
		plan.Returning = elided
	}

	if len(names) == 0 {
		query := "INSERT INTO " + p.quote(entity.Name) + " DEFAULT VALUES"
		if p.dialect == sqlutil.MySQL {
			query = "INSERT INTO " + p.quote(entity.Name) + " () VALUES ()"
		}
		if returning != "" {
			query += " " + returning
		}
		plan.SQLQuery = SQLQuery{SQL: query}
		return plan, nil
	}

	builder := sq.Insert(p.quote(entity.Name)).
		Columns(names...).
		Values(exprs...).
		PlaceholderFormat(p.dialect.PlaceholderFormat())
	if returning != "" {
		builder = builder.Suffix(returning)
	}
	planned, err := p.toSQL(builder)
	if err != nil {
		return InsertPlan{}, err
	}
	plan.SQLQuery = planned
	return plan, nil
}

// Update builds an UPDATE that sets set and matches the row by match.
// Both are keyed by column name.
func (p *Planner) Update(entity *introspection.Entity, set, match map[string]any) (SQLQuery, error) {
	cols := orderedColumns(entity, set)
	if len(cols) == 0 {
		return SQLQuery{}, fmt.Errorf("%w: %s", ErrNothingToUpdate, entity.Name)
	}
	where, err := p.matchCondition(entity, match)
	if err != nil {
		return SQLQuery{}, err
	}

	builder := sq.Update(p.quote(entity.Name)).PlaceholderFormat(p.dialect.PlaceholderFormat())
	for _, col := range cols {
		expr, err := valueExpr(p.dialect, col, set[col.Name])
		if err != nil {
			return SQLQuery{}, err
		}
		builder = builder.Set(p.quote(col.Name), expr)
	}
	return p.toSQL(builder.Where(where))
}

// Delete builds a DELETE matching the row by match.
func (p *Planner) Delete(entity *introspection.Entity, match map[string]any) (SQLQuery, error) {
	where, err := p.matchCondition(entity, match)
	if err != nil {
		return SQLQuery{}, err
	}
	builder := sq.Delete(p.quote(entity.Name)).
		Where(where).
		PlaceholderFormat(p.dialect.PlaceholderFormat())
	return p.toSQL(builder)
}

// DeleteWhere builds a DELETE for an arbitrary condition: a SQL string with
// ? placeholders or a column filter map (see Where).
func (p *Planner) DeleteWhere(entity *introspection.Entity, cond any, args ...any) (SQLQuery, error) {
	where, err := p.condition(entity, cond, args)
	if err != nil {
		return SQLQuery{}, err
	}
	builder := sq.Delete(p.quote(entity.Name)).PlaceholderFormat(p.dialect.PlaceholderFormat())
	if where != nil {
		builder = builder.Where(where)
	}
	return p.toSQL(builder)
}

// matchCondition ANDs one equality per column; nil matches IS NULL.
func (p *Planner) matchCondition(entity *introspection.Entity, match map[string]any) (sq.Sqlizer, error) {
	if len(match) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnidentifiable, entity.Name)
	}
	and := sq.And{}
	for _, name := range sortedNames(match) {
		col, ok := entity.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %s.%s", entity.Name, name)
		}
		cond, err := p.equals(col, match[name])
		if err != nil {
			return nil, err
		}
		and = append(and, cond)
	}
	return and, nil
}

func (p *Planner) equals(col introspection.Column, v any) (sq.Sqlizer, error) {
	quoted := p.quote(col.Name)
	if v == nil {
		return sq.Expr(quoted + " IS NULL"), nil
	}
	bound, err := BindValue(p.dialect, col, v)
	if err != nil {
		return nil, err
	}
	return sq.Expr(quoted+" = "+p.dialect.Cast("?", col.Cast), bound), nil
}
