package planner

import (
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"daogen/internal/introspection"
)

var filterOperators = map[string]struct{}{
	"eq": {}, "ne": {}, "lt": {}, "lte": {}, "gt": {}, "gte": {},
	"in": {}, "notIn": {}, "like": {}, "notLike": {}, "isNull": {},
}

// Where builds a predicate from a column filter map. Keys are column names,
// or AND / OR holding a list of filter maps. A value is either a scalar
// compared for equality, nil for IS NULL, or an operator map such as
// {"gte": 3, "lt": 10}. Conditions are emitted in sorted key order.
func (p *Planner) Where(entity *introspection.Entity, filter map[string]any) (sq.Sqlizer, error) {
	conditions := []sq.Sqlizer{}
	for _, key := range sortedNames(filter) {
		value := filter[key]
		switch key {
		case "AND", "OR":
			items, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%s must be an array", key)
			}
			group := []sq.Sqlizer{}
			for _, item := range items {
				itemMap, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s array items must be objects", key)
				}
				cond, err := p.Where(entity, itemMap)
				if err != nil {
					return nil, err
				}
				if cond != nil {
					group = append(group, cond)
				}
			}
			if len(group) == 0 {
				continue
			}
			if key == "AND" {
				conditions = append(conditions, sq.And(group))
			} else {
				conditions = append(conditions, sq.Or(group))
			}
		default:
			col, ok := entity.Column(key)
			if !ok {
				return nil, fmt.Errorf("unknown column: %s.%s", entity.Name, key)
			}
			if ops, ok := operatorMap(value); ok {
				colConditions, err := p.columnFilter(col, ops)
				if err != nil {
					return nil, err
				}
				conditions = append(conditions, colConditions...)
				continue
			}
			cond, err := p.equals(col, value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
	}

	if len(conditions) == 0 {
		return nil, nil
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return sq.And(conditions), nil
}

// operatorMap reports whether value is a non-empty map made only of filter
// operators. Any other map is a plain value, such as a JSON document.
func operatorMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for op := range m {
		if _, known := filterOperators[op]; !known {
			return nil, false
		}
	}
	return m, true
}

func (p *Planner) columnFilter(col introspection.Column, ops map[string]any) ([]sq.Sqlizer, error) {
	quotedColumn := p.quote(col.Name)
	conditions := []sq.Sqlizer{}

	ordered := make([]string, 0, len(ops))
	for op := range ops {
		ordered = append(ordered, op)
	}
	sort.Strings(ordered)

	for _, op := range ordered {
		value := ops[op]
		if op != "isNull" && op != "in" && op != "notIn" {
			bound, err := BindValue(p.dialect, col, value)
			if err != nil {
				return nil, err
			}
			value = bound
		}
		switch op {
		case "eq":
			conditions = append(conditions, sq.Eq{quotedColumn: value})
		case "ne":
			conditions = append(conditions, sq.NotEq{quotedColumn: value})
		case "lt":
			conditions = append(conditions, sq.Lt{quotedColumn: value})
		case "lte":
			conditions = append(conditions, sq.LtOrEq{quotedColumn: value})
		case "gt":
			conditions = append(conditions, sq.Gt{quotedColumn: value})
		case "gte":
			conditions = append(conditions, sq.GtOrEq{quotedColumn: value})
		case "in":
			arr, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("in operator requires an array")
			}
			conditions = append(conditions, sq.Eq{quotedColumn: arr})
		case "notIn":
			arr, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("notIn operator requires an array")
			}
			conditions = append(conditions, sq.NotEq{quotedColumn: arr})
		case "like":
			conditions = append(conditions, sq.Like{quotedColumn: value})
		case "notLike":
			conditions = append(conditions, sq.NotLike{quotedColumn: value})
		case "isNull":
			cond, err := isNullCondition(quotedColumn, value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
	}
	return conditions, nil
}

func isNullCondition(quotedColumn string, value any) (sq.Sqlizer, error) {
	boolVal, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("isNull must be a boolean")
	}
	if boolVal {
		return sq.Eq{quotedColumn: nil}, nil
	}
	return sq.NotEq{quotedColumn: nil}, nil
}
