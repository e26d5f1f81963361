// Package dao exposes per-table data access generated from reflected schema.
//
// A DB owns the connection's entity registry and caches one Table per table
// name. Every Table operation waits for the table's columns to be reflected
// before it assembles SQL. Query accepts the entity templating syntax of
// package template and materializes results with package hydrate.
package dao

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"daogen/internal/dbexec"
	"daogen/internal/hydrate"
	"daogen/internal/introspection"
	"daogen/internal/observability"
	"daogen/internal/planner"
	"daogen/internal/registry"
	"daogen/internal/sqlutil"
)

// Concurrency configures optimistic-concurrency columns. Each listed column
// that a table has is given a fresh value on every update and is part of the
// update's match condition.
type Concurrency struct {
	Columns []string
	// Value produces the next value for a column. Defaults to NowValue.
	Value func(column string) any
}

// NowValue returns the current UTC time.
func NowValue(string) any { return time.Now().UTC() }

// UUIDValue returns a random UUID string.
func UUIDValue(string) any { return uuid.NewString() }

// DefaultConcurrency tracks updated_at with the current time.
func DefaultConcurrency() Concurrency {
	return Concurrency{Columns: []string{"updated_at"}, Value: NowValue}
}

// Config controls a DB.
type Config struct {
	Dialect sqlutil.Dialect
	Logger  *slog.Logger
	// PreserveColumnNames keeps record field names equal to column names
	// instead of camelCase.
	PreserveColumnNames bool
	DecimalNumerics     bool
	// Concurrency defaults to DefaultConcurrency when nil. A non-nil value
	// with no columns disables optimistic concurrency.
	Concurrency *Concurrency
	// Casts holds explicit column casts per table.
	Casts map[string]map[string]string
	// RegistryConcurrency bounds concurrent reflection in EnsureAll.
	RegistryConcurrency int
	Metrics             *observability.DAOMetrics
	ReflectionMetrics   *observability.ReflectionMetrics
}

// DB is the data-access context of one connection.
type DB struct {
	exec         dbexec.QueryExecutor
	cfg          Config
	logger       *slog.Logger
	registry     *registry.Registry
	planner      *planner.Planner
	materializer *hydrate.Materializer
	converter    hydrate.Converter

	mu     sync.Mutex
	tables map[string]*Table
}

// Open returns a DB over a database handle.
func Open(db *sql.DB, cfg Config) *DB {
	return New(dbexec.NewStandardExecutor(db), cfg)
}

// New returns a DB over an executor.
func New(exec dbexec.QueryExecutor, cfg Config) *DB {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency == nil {
		def := DefaultConcurrency()
		cfg.Concurrency = &def
	}
	if cfg.Concurrency.Value == nil {
		cfg.Concurrency.Value = NowValue
	}

	d := &DB{
		exec:      exec,
		cfg:       cfg,
		logger:    logger,
		planner:   planner.New(cfg.Dialect),
		converter: hydrate.Converter{DecimalNumerics: cfg.DecimalNumerics},
		tables:    make(map[string]*Table),
	}
	matCfg := hydrate.Config{Converter: d.converter}
	if cfg.PreserveColumnNames {
		matCfg.FieldName = func(column string) string { return column }
	}
	d.materializer = hydrate.New(matCfg)
	d.registry = registry.New(registry.Config{
		Load:        d.reflect,
		Logger:      logger,
		Concurrency: cfg.RegistryConcurrency,
	})
	return d
}

// Dialect returns the connection's dialect.
func (d *DB) Dialect() sqlutil.Dialect { return d.cfg.Dialect }

// Registry returns the connection's entity registry.
func (d *DB) Registry() *registry.Registry { return d.registry }

// Materializer returns the materializer used for query results.
func (d *DB) Materializer() *hydrate.Materializer { return d.materializer }

// Executor returns the connection's executor.
func (d *DB) Executor() dbexec.QueryExecutor { return d.exec }

// Table returns the cached generator for name, creating it on first use.
func (d *DB) Table(name string) *Table {
	return d.NewTable(name, TableOptions{})
}

// NewTable returns a generator for name. Unless opts.SkipRegistry is set,
// the first generator created for a name is cached and returned by later
// calls, whose options are then ignored.
func (d *DB) NewTable(name string, opts TableOptions) *Table {
	if opts.SkipRegistry {
		return newTable(d, name, opts)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[name]; ok {
		return t
	}
	t := newTable(d, name, opts)
	d.tables[name] = t
	return t
}

// EnsureAll reflects several tables concurrently.
func (d *DB) EnsureAll(ctx context.Context, names ...string) ([]*introspection.Entity, error) {
	return d.registry.EnsureAll(ctx, names...)
}

// InTx runs fn in a transaction on the connection.
func (d *DB) InTx(ctx context.Context, fn func(tx dbexec.Querier) error) error {
	return dbexec.InTx(ctx, d.exec, fn)
}

// Reset forgets every reflected entity and cached generator.
func (d *DB) Reset() {
	d.mu.Lock()
	d.tables = make(map[string]*Table)
	d.mu.Unlock()
	d.registry.Reset()
	d.cfg.ReflectionMetrics.RecordReset()
}

func (d *DB) reflect(ctx context.Context, name string) (*introspection.Entity, error) {
	return d.reflectWith(ctx, name, d.cfg.Casts[name])
}

func (d *DB) reflectWith(ctx context.Context, name string, casts map[string]string) (*introspection.Entity, error) {
	start := time.Now()
	entity, err := introspection.Reflect(ctx, d.exec, name, introspection.Options{
		Dialect: d.cfg.Dialect,
		Casts:   casts,
		Logger:  d.logger,
	})
	d.cfg.ReflectionMetrics.RecordReflect(ctx, name, time.Since(start), err)
	return entity, err
}
