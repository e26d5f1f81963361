package introspection

import (
	"context"
	"errors"
	"testing"

	"daogen/internal/dbexec"
	"daogen/internal/sqlutil"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*dbexec.StandardExecutor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return dbexec.NewStandardExecutor(db), mock
}

func TestReflectPostgres(t *testing.T) {
	exec, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"attname", "elidable", "pkey", "typname"}).
		AddRow("id", true, true, "int4").
		AddRow("name", false, false, "varchar").
		AddRow("tags", true, false, "_text").
		AddRow("meta", true, false, "jsonb")
	mock.ExpectQuery("FROM pg_catalog.pg_attribute").
		WithArgs("test").
		WillReturnRows(rows)

	entity, err := Reflect(context.Background(), exec, "test", Options{Dialect: sqlutil.Postgres})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "test", entity.Name)
	assert.Equal(t, []string{"id"}, entity.Keys)
	require.Len(t, entity.Columns, 4)
	assert.Equal(t, Column{Name: "id", Elidable: true, IsPrimaryKey: true, SourceType: "int4"}, entity.Columns[0])
	assert.False(t, entity.Columns[1].Elidable)
	assert.Equal(t, "_text", entity.Columns[2].Cast)
	assert.True(t, entity.Columns[3].IsJSON)
	assert.Empty(t, entity.Columns[3].Cast)
}

func TestReflectExplicitCastWins(t *testing.T) {
	exec, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"attname", "elidable", "pkey", "typname"}).
		AddRow("id", true, true, "int4").
		AddRow("tags", true, false, "_text")
	mock.ExpectQuery("FROM pg_catalog.pg_attribute").WillReturnRows(rows)

	entity, err := Reflect(context.Background(), exec, "test", Options{
		Dialect: sqlutil.Postgres,
		Casts:   map[string]string{"id": "int8", "tags": "varchar[]"},
	})
	require.NoError(t, err)
	assert.Equal(t, "int8", entity.Columns[0].Cast)
	assert.Equal(t, "varchar[]", entity.Columns[1].Cast)
}

func TestReflectMySQL(t *testing.T) {
	exec, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_KEY", "EXTRA"}).
		AddRow("id", "int", "NO", nil, "PRI", "auto_increment").
		AddRow("name", "varchar", "NO", nil, "", "").
		AddRow("created_at", "timestamp", "NO", "CURRENT_TIMESTAMP", "", "DEFAULT_GENERATED").
		AddRow("note", "text", "YES", nil, "", "")
	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("test").
		WillReturnRows(rows)

	entity, err := Reflect(context.Background(), exec, "test", Options{Dialect: sqlutil.MySQL})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id"}, entity.Keys)
	elidable := map[string]bool{}
	for _, col := range entity.Columns {
		elidable[col.Name] = col.Elidable
	}
	assert.Equal(t, map[string]bool{"id": true, "name": false, "created_at": true, "note": true}, elidable)
}

func TestReflectMySQLAutoRandomFallback(t *testing.T) {
	exec, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_KEY", "EXTRA"}).
		AddRow("id", "bigint", "NO", nil, "PRI", "").
		AddRow("name", "varchar", "NO", nil, "", "")
	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").WillReturnRows(rows)

	createSQL := "CREATE TABLE `events` (\n" +
		"  `id` bigint(20) NOT NULL /*T![auto_rand] AUTO_RANDOM(5) */,\n" +
		"  `name` varchar(64) NOT NULL,\n" +
		"  PRIMARY KEY (`id`)\n" +
		")"
	mock.ExpectQuery("SHOW CREATE TABLE `events`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("events", createSQL))

	entity, err := Reflect(context.Background(), exec, "events", Options{Dialect: sqlutil.MySQL})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, entity.Columns[0].Elidable)
	assert.False(t, entity.Columns[1].Elidable)
}

func TestReflectSQLite(t *testing.T) {
	exec, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
		AddRow(0, "id", "INTEGER", 0, nil, 1).
		AddRow(1, "name", "TEXT", 1, nil, 0).
		AddRow(2, "status", "TEXT", 1, "'new'", 0)
	mock.ExpectQuery(`PRAGMA table_info\('test'\)`).WillReturnRows(rows)

	entity, err := Reflect(context.Background(), exec, "test", Options{Dialect: sqlutil.SQLite})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id"}, entity.Keys)
	assert.True(t, entity.Columns[0].Elidable)
	assert.False(t, entity.Columns[1].Elidable)
	assert.True(t, entity.Columns[2].Elidable)
}

func TestReflectNotFound(t *testing.T) {
	exec, mock := newMock(t)
	mock.ExpectQuery("FROM pg_catalog.pg_attribute").
		WillReturnRows(sqlmock.NewRows([]string{"attname", "elidable", "pkey", "typname"}))

	_, err := Reflect(context.Background(), exec, "nope", Options{Dialect: sqlutil.Postgres})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestReflectQueryError(t *testing.T) {
	exec, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM pg_catalog.pg_attribute").WillReturnError(boom)

	_, err := Reflect(context.Background(), exec, "test", Options{Dialect: sqlutil.Postgres})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "reflect test")
}

func TestReflectUnsupportedDialect(t *testing.T) {
	exec, _ := newMock(t)
	_, err := Reflect(context.Background(), exec, "test", Options{Dialect: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestExtractAutoRandomColumns(t *testing.T) {
	createSQL := "CREATE TABLE `t` (\n" +
		"  `id` bigint NOT NULL /*T![auto_rand] AUTO_RANDOM(5) */,\n" +
		"  `other` bigint NOT NULL\n" +
		")"
	assert.Equal(t, map[string]bool{"id": true}, extractAutoRandomColumns(createSQL))
}
