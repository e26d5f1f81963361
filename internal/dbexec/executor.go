// Package dbexec provides database query execution abstractions.
// It supports direct execution, transactions, and role-based execution using SET ROLE.
package dbexec

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Querier runs statements. Both QueryExecutor and TxExecutor satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// QueryExecutor abstracts SQL execution so callers can swap in role-aware behavior.
type QueryExecutor interface {
	Querier
	BeginTx(ctx context.Context) (TxExecutor, error)
}

// TxExecutor is a Querier bound to an open transaction.
type TxExecutor interface {
	Querier
	Commit() error
	Rollback() error
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

func (e *StandardExecutor) BeginTx(ctx context.Context) (TxExecutor, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

// WrapTx adapts an externally managed *sql.Tx.
func WrapTx(tx *sql.Tx) TxExecutor {
	return &sqlTx{tx: tx}
}

type sqlTx struct {
	tx      *sql.Tx
	cleanup func()
}

func (t *sqlTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) Commit() error {
	defer t.release()
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	defer t.release()
	return t.tx.Rollback()
}

func (t *sqlTx) release() {
	if t.cleanup != nil {
		t.cleanup()
		t.cleanup = nil
	}
}

// InTx runs fn inside a transaction. When q is already a transaction, fn runs
// in it and the caller keeps ownership. Otherwise a transaction is started,
// committed when fn succeeds, and rolled back when it fails.
func InTx(ctx context.Context, q Querier, fn func(tx Querier) error) error {
	if _, ok := q.(TxExecutor); ok {
		return fn(q)
	}
	beginner, ok := q.(QueryExecutor)
	if !ok {
		return fn(q)
	}
	tx, err := beginner.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
