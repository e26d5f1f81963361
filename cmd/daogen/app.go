package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"daogen/internal/config"
	"daogen/internal/dao"
	"daogen/internal/dbexec"
	"daogen/internal/logging"
	"daogen/internal/observability"
	"daogen/internal/sqlutil"
)

type appOptions struct {
	Role        string
	DumpMetrics bool
	Stderr      io.Writer
}

// app holds everything a command needs, and tears it down in Close.
type app struct {
	cfg     *config.Config
	opts    appOptions
	logger  *logging.Logger
	dialect sqlutil.Dialect
	sqlDB   *sql.DB
	db      *dao.DB

	meter   *observability.MeterProvider
	tracer  *observability.TracerProvider
	logs    *observability.LoggerProvider
	dbStats interface{ Unregister() error }
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if cfg.Observability.ServiceVersion == "" || cfg.Observability.ServiceVersion == "dev" {
		cfg.Observability.ServiceVersion = version
	}
	a := &app{cfg: cfg, opts: opts}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()

	obs := cfg.Observability
	if obs.Logging.ExportsEnabled && obs.OTLP.Endpoint != "" {
		if a.logs, err = observability.InitLoggerProvider(ctx, obs.Telemetry()); err != nil {
			return nil, err
		}
	}
	logCfg := logging.Config{Level: obs.Logging.Level, Format: obs.Logging.Format, Output: opts.Stderr}
	if a.logs != nil {
		logCfg.LoggerProvider = a.logs.Provider()
	}
	a.logger = logging.NewLogger(logCfg)

	result := cfg.Validate()
	for _, w := range result.Warnings {
		a.logger.Warn("configuration warning", slog.String("field", w.Field), slog.String("message", w.Message))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if a.dialect, err = cfg.Database.ResolvedDialect(); err != nil {
		return nil, err
	}

	var daoMetrics *observability.DAOMetrics
	var reflectionMetrics *observability.ReflectionMetrics
	if obs.MetricsEnabled || opts.DumpMetrics {
		if a.meter, err = observability.InitMeterProvider(obs.Telemetry()); err != nil {
			return nil, err
		}
		if daoMetrics, reflectionMetrics, err = observability.InitMetrics(a.logger.Logger); err != nil {
			return nil, err
		}
	}
	if obs.TracingEnabled {
		if a.tracer, err = observability.InitTracerProvider(ctx, obs.Telemetry()); err != nil {
			return nil, err
		}
	}

	if a.sqlDB, a.dbStats, err = connectDB(ctx, cfg, a.dialect, a.meter != nil, a.logger); err != nil {
		return nil, err
	}

	daoCfg := dao.Config{
		Dialect:             a.dialect,
		Logger:              a.logger.Logger,
		PreserveColumnNames: !cfg.DAO.CamelCase,
		DecimalNumerics:     cfg.DAO.DecimalNumerics,
		Concurrency:         concurrencyFromConfig(cfg.DAO.OptimisticConcurrency),
		Casts:               cfg.DAO.Casts,
		Metrics:             daoMetrics,
		ReflectionMetrics:   reflectionMetrics,
	}
	if opts.Role != "" {
		a.db = dao.New(dbexec.NewRoleExecutor(dbexec.RoleExecutorConfig{
			DB:          a.sqlDB,
			Dialect:     a.dialect,
			DefaultRole: opts.Role,
		}), daoCfg)
	} else {
		a.db = dao.Open(a.sqlDB, daoCfg)
	}
	return a, nil
}

func concurrencyFromConfig(c config.ConcurrencyConfig) *dao.Concurrency {
	conc := &dao.Concurrency{Columns: c.Columns, Value: dao.NowValue}
	if c.Value == "uuid" {
		conc.Value = dao.UUIDValue
	}
	return conc
}

// Close dumps metrics when asked and releases every resource in reverse
// order of acquisition.
func (a *app) Close(ctx context.Context) error {
	logger := slog.New(slog.DiscardHandler)
	if a.logger != nil {
		logger = a.logger.Logger
	}
	var errs []error
	if a.meter != nil && a.opts.DumpMetrics {
		errs = append(errs, a.meter.WriteText(a.opts.Stderr))
	}
	if a.dbStats != nil {
		errs = append(errs, a.dbStats.Unregister())
	}
	if a.sqlDB != nil {
		errs = append(errs, a.sqlDB.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx, logger))
	}
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx, logger))
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Shutdown(ctx, logger))
	}
	*a = app{}
	return errors.Join(errs...)
}
