package dbexec

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"daogen/internal/sqlutil"
)

type roleContextKey struct{}

// WithRole returns a context that carries the database role to assume.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext returns the role stored by WithRole.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleContextKey{}).(string)
	return role, ok && role != ""
}

// RoleExecutor executes queries using SET ROLE on a dedicated connection.
type RoleExecutor struct {
	db           *sql.DB
	dialect      sqlutil.Dialect
	defaultRole  string
	roleFromCtx  func(context.Context) (string, bool)
	allowedRoles map[string]struct{}
	validateRole bool
}

// RoleExecutorConfig controls role execution behavior.
type RoleExecutorConfig struct {
	DB      *sql.DB
	Dialect sqlutil.Dialect
	// DefaultRole is assumed when the context carries none.
	DefaultRole  string
	RoleFromCtx  func(context.Context) (string, bool)
	AllowedRoles []string
	ValidateRole bool
}

// NewRoleExecutor creates an executor that applies SET ROLE before each statement.
// Postgres and MySQL/TiDB both enforce privileges of the assumed role.
func NewRoleExecutor(cfg RoleExecutorConfig) *RoleExecutor {
	allowed := make(map[string]struct{}, len(cfg.AllowedRoles))
	for _, role := range cfg.AllowedRoles {
		allowed[role] = struct{}{}
	}
	roleFromCtx := cfg.RoleFromCtx
	if roleFromCtx == nil {
		roleFromCtx = RoleFromContext
	}
	return &RoleExecutor{
		db:           cfg.DB,
		dialect:      cfg.Dialect,
		defaultRole:  cfg.DefaultRole,
		roleFromCtx:  roleFromCtx,
		allowedRoles: allowed,
		validateRole: cfg.ValidateRole,
	}
}

func (e *RoleExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	conn, cleanup, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &roleAwareRows{
		Rows:    rows,
		cleanup: cleanup,
	}, nil
}

func (e *RoleExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, cleanup, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return conn.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction on a connection that keeps the role until
// the transaction ends.
func (e *RoleExecutor) BeginTx(ctx context.Context) (TxExecutor, error) {
	conn, cleanup, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &sqlTx{tx: tx, cleanup: cleanup}, nil
}

func (e *RoleExecutor) role(ctx context.Context) string {
	if role, ok := e.roleFromCtx(ctx); ok && role != "" {
		return role
	}
	return e.defaultRole
}

func (e *RoleExecutor) acquire(ctx context.Context) (*sql.Conn, func(), error) {
	if e.db == nil {
		return nil, nil, sql.ErrConnDone
	}
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	role := e.role(ctx)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if role != "" {
				_, _ = conn.ExecContext(context.Background(), e.resetRoleSQL())
			}
			_ = conn.Close()
		})
	}

	if role == "" {
		return conn, cleanup, nil
	}
	if e.validateRole {
		if _, allowed := e.allowedRoles[role]; !allowed {
			cleanup()
			return nil, nil, fmt.Errorf("role not allowed: %s", role)
		}
	}
	// SET ROLE does not accept bind parameters; the role is quoted as an identifier.
	setRoleSQL := fmt.Sprintf("SET ROLE %s", e.dialect.QuoteIdentifier(role))
	if _, err := conn.ExecContext(ctx, setRoleSQL); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to set role %s: %w", role, err)
	}
	return conn, cleanup, nil
}

func (e *RoleExecutor) resetRoleSQL() string {
	if e.dialect == sqlutil.Postgres {
		return "RESET ROLE"
	}
	return "SET ROLE DEFAULT"
}

type roleAwareRows struct {
	*sql.Rows
	cleanup func()
}

func (r *roleAwareRows) Close() error {
	defer r.cleanup()
	return r.Rows.Close()
}
