package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardExecutor(t *testing.T) {
	t.Run("nil db returns error", func(t *testing.T) {
		executor := &StandardExecutor{db: nil}

		_, err := executor.QueryContext(context.Background(), "SELECT 1")
		assert.Equal(t, sql.ErrConnDone, err)

		_, err = executor.ExecContext(context.Background(), "INSERT INTO test VALUES (1)")
		assert.Equal(t, sql.ErrConnDone, err)

		_, err = executor.BeginTx(context.Background())
		assert.Equal(t, sql.ErrConnDone, err)
	})

	t.Run("runs statements against the handle", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("DELETE FROM test").WillReturnResult(sqlmock.NewResult(0, 2))

		res, err := NewStandardExecutor(db).ExecContext(context.Background(), "DELETE FROM test")
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE test").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = InTx(context.Background(), NewStandardExecutor(db), func(tx Querier) error {
			_, err := tx.ExecContext(context.Background(), "UPDATE test SET name = 'x'")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = InTx(context.Background(), NewStandardExecutor(db), func(tx Querier) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reuses a caller transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM test").WillReturnResult(sqlmock.NewResult(0, 1))

		sqlTx, err := db.Begin()
		require.NoError(t, err)
		tx := WrapTx(sqlTx)

		err = InTx(context.Background(), tx, func(inner Querier) error {
			assert.Same(t, tx, inner)
			_, err := inner.ExecContext(context.Background(), "DELETE FROM test")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScanMaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "_u__name"}).
			AddRow(int64(1), "alice").
			AddRow(int64(2), nil),
	)

	rows, err := NewStandardExecutor(db).QueryContext(context.Background(), "SELECT")
	require.NoError(t, err)
	result, err := ScanMaps(rows)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "_u__name": "alice"},
		{"id": int64(2), "_u__name": nil},
	}, result)
}
