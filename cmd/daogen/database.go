package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"

	"daogen/internal/config"
	"daogen/internal/logging"
	"daogen/internal/sqlutil"
)

func dbSystem(d sqlutil.Dialect) attribute.KeyValue {
	switch d {
	case sqlutil.Postgres:
		return semconv.DBSystemPostgreSQL
	case sqlutil.SQLite:
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemMySQL
	}
}

// connectDB opens an otelsql-instrumented handle, sizes its pool and pings
// it. DB stats metrics are registered when metrics are collected.
func connectDB(ctx context.Context, cfg *config.Config, dialect sqlutil.Dialect, metrics bool, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	dsn, err := cfg.Database.DriverDSN()
	if err != nil {
		return nil, nil, err
	}

	system := dbSystem(dialect)
	opts := []otelsql.Option{otelsql.WithAttributes(system)}
	if cfg.Observability.TracingEnabled {
		opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}))
	}
	db, err := otelsql.Open(dialect.DriverName(), dsn, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	pool := cfg.Database.Pool
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	if dialect == sqlutil.SQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect to %s database: %w", dialect, err)
	}

	var stats interface{ Unregister() error }
	if metrics {
		stats, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system))
		if err != nil {
			logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
		}
	}

	logger.Debug("connected to database",
		slog.String("dialect", string(dialect)),
		slog.Int("pool_max_open", pool.MaxOpen),
		slog.Int("pool_max_idle", pool.MaxIdle),
		slog.Duration("pool_max_lifetime", pool.MaxLifetime),
		slog.Bool("instrumented_tracing", cfg.Observability.TracingEnabled),
	)
	return db, stats, nil
}
