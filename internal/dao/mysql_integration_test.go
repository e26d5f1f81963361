//go:build integration

package dao

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daogen/internal/dbexec"
	"daogen/internal/hydrate"
	"daogen/internal/sqlutil"
	"daogen/internal/testutil/mysqltest"
)

var mysqlSchema = []string{
	"CREATE TABLE author (id BIGINT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64) NOT NULL, bio JSON NULL, " +
		"updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6))",
	"CREATE TABLE book (id BIGINT AUTO_INCREMENT PRIMARY KEY, author_id BIGINT NOT NULL, title VARCHAR(128) NOT NULL, " +
		"price DECIMAL(8,2) NOT NULL DEFAULT 0)",
}

func TestMySQLLifecycle(t *testing.T) {
	tdb := mysqltest.NewTestDB(t)
	tdb.Exec(t, mysqlSchema...)
	db := Open(tdb.DB, Config{Dialect: sqlutil.MySQL, DecimalNumerics: true})
	ctx := context.Background()
	authors, books := db.Table("author"), db.Table("book")

	author := authors.New(map[string]any{"name": "Le Guin", "bio": map[string]any{"born": 1929}})
	require.NoError(t, authors.Insert(ctx, author))
	assert.Equal(t, int64(1), author.Value("id"))
	require.NotNil(t, author.Value("updatedAt"))

	for _, title := range []string{"The Dispossessed", "Lathe of Heaven"} {
		require.NoError(t, books.Insert(ctx, books.New(map[string]any{"authorId": author.Value("id"), "title": title})))
	}

	found, err := authors.Query(ctx,
		"SELECT @a.*, @b.* FROM @author a JOIN @book b ON b.author_id = a.id ORDER BY b.id",
		QueryOptions{Fetch: hydrate.Fetch{"b": hydrate.ManyOf(nil)}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Len(t, found[0].Many("b"), 2)
	assert.Equal(t, map[string]any{"born": float64(1929)}, found[0].Value("bio"))

	// An unchanged row still counts as matched with clientFoundRows.
	require.NoError(t, authors.Update(ctx, found[0]))

	n, err := books.DeleteWhere(ctx, map[string]any{"author_id": author.Value("id")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMySQLRoleExecutor(t *testing.T) {
	rdb := mysqltest.NewRoleTestDB(t)
	rdb.Exec(t, mysqlSchema...)
	rdb.Exec(t, "INSERT INTO author (name) VALUES ('Butler')")
	rdb.CreateRole(t, "daogen_reader", "SELECT")

	exec := dbexec.NewRoleExecutor(dbexec.RoleExecutorConfig{
		DB:           rdb.RuntimeDB,
		Dialect:      sqlutil.MySQL,
		DefaultRole:  "daogen_reader",
		AllowedRoles: []string{"daogen_reader"},
		ValidateRole: true,
	})
	db := New(exec, Config{Dialect: sqlutil.MySQL})
	ctx := context.Background()
	authors := db.Table("author")

	rows, err := authors.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Butler", rows[0].Value("name"))

	err = authors.Insert(ctx, authors.New(map[string]any{"name": "Jemisin"}))
	assert.Error(t, err)

	_, err = authors.Find(dbexec.WithRole(ctx, "daogen_admin"), nil)
	assert.ErrorContains(t, err, "role not allowed")
}
