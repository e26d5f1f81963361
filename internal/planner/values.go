package planner

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"daogen/internal/introspection"
	"daogen/internal/sqltype"
	"daogen/internal/sqlutil"
	"daogen/internal/uuidutil"
)

// BindValue prepares v for binding to col: JSON columns are encoded, UUID
// text is canonicalized, Postgres array columns are wrapped with pq.Array.
func BindValue(d sqlutil.Dialect, col introspection.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	if col.IsJSON || sqltype.IsJSON(col.SourceType) {
		switch t := v.(type) {
		case string, []byte:
			return t, nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", col.Name, err)
		}
		return string(encoded), nil
	}
	if s, ok := v.(string); ok && sqltype.Map(col.SourceType) == sqltype.UUID {
		canonical, err := uuidutil.Canonical(s)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", col.Name, err)
		}
		return canonical, nil
	}
	if d == sqlutil.Postgres && sqltype.Map(col.SourceType) == sqltype.Array {
		if _, isBytes := v.([]byte); !isBytes && reflect.ValueOf(v).Kind() == reflect.Slice {
			return pq.Array(v), nil
		}
	}
	return v, nil
}

// valueExpr renders a bound value, cast when the column carries a cast.
func valueExpr(d sqlutil.Dialect, col introspection.Column, v any) (any, error) {
	bound, err := BindValue(d, col, v)
	if err != nil {
		return nil, err
	}
	if col.Cast == "" {
		return bound, nil
	}
	return sq.Expr(d.Cast("?", col.Cast), bound), nil
}
