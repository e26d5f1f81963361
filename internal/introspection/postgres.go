package introspection

import (
	"context"
)

const postgresColumnsQuery = `
	SELECT
		a.attname,
		a.atthasdef OR NOT a.attnotnull,
		COALESCE(
			(SELECT con.conkey @> ARRAY[a.attnum]
			 FROM pg_catalog.pg_constraint con
			 WHERE con.conrelid = a.attrelid AND con.contype = 'p'),
			false
		),
		t.typname
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
	WHERE c.relname = $1
		AND a.attnum > 0
		AND NOT a.attisdropped
		AND pg_catalog.pg_table_is_visible(c.oid)
	ORDER BY a.attnum
`

func postgresColumns(ctx context.Context, db Queryer, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, postgresColumnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Elidable, &col.IsPrimaryKey, &col.SourceType); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}
