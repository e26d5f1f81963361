package introspection

import (
	"context"
	"database/sql"
	"strings"

	"daogen/internal/sqlutil"
)

func sqliteColumns(ctx context.Context, db Queryer, table string) ([]Column, error) {
	query := "PRAGMA table_info(" + sqlutil.QuoteString(table) + ")"
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var (
			cid       int
			col       Column
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &col.Name, &col.SourceType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		col.IsPrimaryKey = pk > 0
		// INTEGER PRIMARY KEY aliases the rowid and is assigned on insert.
		rowid := col.IsPrimaryKey && strings.EqualFold(col.SourceType, "integer")
		col.Elidable = notNull == 0 || dfltValue.Valid || rowid
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}
