package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

const mysqlColumnsQuery = `
	SELECT
		COLUMN_NAME,
		DATA_TYPE,
		IS_NULLABLE,
		COLUMN_DEFAULT,
		COLUMN_KEY,
		EXTRA
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION
`

func mysqlColumns(ctx context.Context, db Queryer, table string, logger *slog.Logger) ([]Column, error) {
	rows, err := db.QueryContext(ctx, mysqlColumnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var (
			col           Column
			isNullable    string
			columnDefault sql.NullString
			columnKey     string
			extra         string
		)
		if err := rows.Scan(&col.Name, &col.SourceType, &isNullable, &columnDefault, &columnKey, &extra); err != nil {
			return nil, err
		}
		extraLower := strings.ToLower(extra)
		col.IsPrimaryKey = strings.EqualFold(columnKey, "PRI")
		col.Elidable = strings.EqualFold(isNullable, "YES") ||
			columnDefault.Valid ||
			strings.Contains(extraLower, "auto_increment") ||
			strings.Contains(extraLower, "auto_random") ||
			strings.Contains(extraLower, "generated")
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	if needsAutoRandomCheck(columns) {
		columns = applyAutoRandomColumns(ctx, db, table, columns, logger)
	}
	return columns, nil
}

// needsAutoRandomCheck reports whether a bigint key column is not yet known
// to be elidable. TiDB does not always surface AUTO_RANDOM in EXTRA.
func needsAutoRandomCheck(columns []Column) bool {
	for _, col := range columns {
		if col.IsPrimaryKey && !col.Elidable && strings.EqualFold(col.SourceType, "bigint") {
			return true
		}
	}
	return false
}

func applyAutoRandomColumns(ctx context.Context, db Queryer, table string, columns []Column, logger *slog.Logger) []Column {
	createSQL, err := showCreateTable(ctx, db, table)
	if err != nil {
		logger.Warn("failed to load create table statement", slog.String("table", table), slog.String("error", err.Error()))
		return columns
	}

	autoCols := extractAutoRandomColumns(createSQL)
	for i := range columns {
		if autoCols[columns[i].Name] {
			columns[i].Elidable = true
		}
	}
	return columns
}

func showCreateTable(ctx context.Context, db Queryer, table string) (string, error) {
	query := fmt.Sprintf("SHOW CREATE TABLE `%s`", strings.ReplaceAll(table, "`", "``"))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rows.Close()
	}()

	var createSQL string
	if rows.Next() {
		var name string
		if err := rows.Scan(&name, &createSQL); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if createSQL == "" {
		return "", fmt.Errorf("empty create table statement for %s", table)
	}
	return createSQL, nil
}

func extractAutoRandomColumns(createSQL string) map[string]bool {
	autoCols := make(map[string]bool)
	for _, line := range strings.Split(createSQL, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "`") {
			continue
		}
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "auto_random") {
			continue
		}
		end := strings.Index(line[1:], "`")
		if end == -1 {
			continue
		}
		autoCols[line[1:1+end]] = true
	}
	return autoCols
}
