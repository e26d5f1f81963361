// Package mysqltest provisions throwaway MySQL/TiDB databases for
// integration tests. Tests skip unless DAOGEN_TEST_MYSQL_DSN names a
// server account allowed to create databases, users and roles.
package mysqltest

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"daogen/internal/sqlutil"
)

// DSNEnv names the environment variable holding the admin DSN.
const DSNEnv = "DAOGEN_TEST_MYSQL_DSN"

// TestDB is an isolated database dropped when the test ends.
type TestDB struct {
	DB   *sql.DB
	Name string
	base *mysql.Config
}

// RoleTestDB adds a runtime user that may only act through granted roles.
type RoleTestDB struct {
	*TestDB
	RuntimeDB   *sql.DB
	RuntimeUser string
	roles       []string
}

// NewTestDB creates a database named after the test and connects to it.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	base := adminConfig(t)

	name := fmt.Sprintf("daogen_%s_%d", sanitizeName(t.Name()), time.Now().UnixMilli())
	if !isValidName(name) {
		t.Fatalf("invalid database name generated: %s", name)
	}

	bootstrap := open(t, base, "")
	if _, err := bootstrap.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		_ = bootstrap.Close()
		t.Fatalf("create test database %s: %v", name, err)
	}
	_ = bootstrap.Close()

	tdb := &TestDB{DB: open(t, base, name), Name: name, base: base}
	t.Cleanup(func() { tdb.teardown(t) })
	return tdb
}

// NewRoleTestDB creates a test database plus a runtime user. Roles created
// with CreateRole are granted to that user but never made default.
func NewRoleTestDB(t *testing.T) *RoleTestDB {
	t.Helper()
	tdb := NewTestDB(t)

	// MySQL user names are limited to 32 characters.
	user := fmt.Sprintf("dg_rt_%d", time.Now().UnixNano())
	if len(user) > 32 {
		user = user[:32]
	}
	password, err := generatePassword(24)
	if err != nil {
		t.Fatalf("generate runtime password: %v", err)
	}
	// CREATE USER takes no bind parameters for IDENTIFIED BY.
	stmt := fmt.Sprintf("CREATE USER %s IDENTIFIED BY %s", quoteUserHost(user, "%"), sqlutil.QuoteString(password))
	if _, err := tdb.DB.Exec(stmt); err != nil {
		t.Fatalf("create runtime user: %v", err)
	}

	rdb := &RoleTestDB{TestDB: tdb, RuntimeUser: user}
	t.Cleanup(func() { rdb.teardown(t) })

	cfg := tdb.base.Clone()
	cfg.User, cfg.Passwd = user, password
	rdb.RuntimeDB = open(t, cfg, tdb.Name)
	return rdb
}

// CreateRole creates role, grants it privileges on the test database and
// grants it to the runtime user.
func (r *RoleTestDB) CreateRole(t *testing.T, role string, privileges ...string) {
	t.Helper()
	if !isValidName(role) {
		t.Fatalf("invalid role name: %s", role)
	}
	stmts := []string{
		fmt.Sprintf("CREATE ROLE IF NOT EXISTS `%s`", role),
		fmt.Sprintf("GRANT %s ON `%s`.* TO `%s`", strings.Join(privileges, ", "), r.Name, role),
		fmt.Sprintf("GRANT `%s` TO %s", role, quoteUserHost(r.RuntimeUser, "%")),
	}
	for _, stmt := range stmts {
		if _, err := r.DB.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	r.roles = append(r.roles, role)
}

// Exec runs each statement against the test database.
func (tdb *TestDB) Exec(t *testing.T, statements ...string) {
	t.Helper()
	for i, stmt := range statements {
		if _, err := tdb.DB.Exec(stmt); err != nil {
			t.Fatalf("statement %d: %v\n%s", i+1, err, stmt)
		}
	}
}

func (tdb *TestDB) teardown(t *testing.T) {
	if _, err := tdb.DB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", tdb.Name)); err != nil {
		t.Logf("warning: drop test database %s: %v", tdb.Name, err)
	}
	if err := tdb.DB.Close(); err != nil {
		t.Logf("warning: close test database: %v", err)
	}
}

func (r *RoleTestDB) teardown(t *testing.T) {
	if r.RuntimeDB != nil {
		_ = r.RuntimeDB.Close()
	}
	if _, err := r.DB.Exec("DROP USER IF EXISTS " + quoteUserHost(r.RuntimeUser, "%")); err != nil {
		t.Logf("warning: drop runtime user %s: %v", r.RuntimeUser, err)
	}
	for _, role := range r.roles {
		if _, err := r.DB.Exec(fmt.Sprintf("DROP ROLE IF EXISTS `%s`", role)); err != nil {
			t.Logf("warning: drop role %s: %v", role, err)
		}
	}
}

func adminConfig(t *testing.T) *mysql.Config {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping MySQL integration test", DSNEnv)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %s: %v", DSNEnv, err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.MultiStatements = false
	return cfg
}

func open(t *testing.T, base *mysql.Config, database string) *sql.DB {
	t.Helper()
	cfg := base.Clone()
	cfg.DBName = database
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		t.Fatalf("open %s: %v", database, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		t.Fatalf("ping %s: %v", database, err)
	}
	return db
}

func generatePassword(length int) (string, error) {
	buf := make([]byte, max(length, 12))
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func quoteUserHost(user, host string) string {
	return fmt.Sprintf("'%s'@'%s'", strings.ReplaceAll(user, "'", "''"), strings.ReplaceAll(host, "'", "''"))
}

// sanitizeName maps a test name onto database-name characters, leaving room
// for the timestamp suffix under the 64 character limit.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, ch := range name {
		if isNameChar(ch) {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if len(s) > 36 {
		s = s[:36]
	}
	return s
}

// isValidName guards names interpolated into DDL.
func isValidName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, ch := range name {
		if !isNameChar(ch) {
			return false
		}
	}
	return true
}

func isNameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
