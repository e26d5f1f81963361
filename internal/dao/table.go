package dao

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"daogen/internal/dbexec"
	"daogen/internal/hydrate"
	"daogen/internal/introspection"
	"daogen/internal/registry"
	"daogen/internal/template"
)

// TableOptions configures one generator.
type TableOptions struct {
	// SkipRegistry reflects the table privately instead of through the
	// connection registry, and leaves the generator uncached.
	SkipRegistry bool
	// Defaults seed every record built by New.
	Defaults map[string]any
	// Casts replaces the connection's casts for this table.
	Casts map[string]string
	// Concurrency replaces the connection's optimistic-concurrency settings.
	Concurrency *Concurrency
}

// Table generates data access for one table.
type Table struct {
	db          *DB
	name        string
	defaults    map[string]any
	concurrency Concurrency
	registry    *registry.Registry
	exec        dbexec.Querier
}

func newTable(d *DB, name string, opts TableOptions) *Table {
	t := &Table{
		db:          d,
		name:        name,
		defaults:    opts.Defaults,
		concurrency: *d.cfg.Concurrency,
		registry:    d.registry,
		exec:        d.exec,
	}
	if opts.Concurrency != nil {
		t.concurrency = *opts.Concurrency
		if t.concurrency.Value == nil {
			t.concurrency.Value = NowValue
		}
	}
	if opts.SkipRegistry || opts.Casts != nil {
		casts := opts.Casts
		if casts == nil {
			casts = d.cfg.Casts[name]
		}
		t.registry = registry.New(registry.Config{
			Load: func(ctx context.Context, n string) (*introspection.Entity, error) {
				return d.reflectWith(ctx, n, casts)
			},
			Logger: d.logger,
		})
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// In returns a copy of the generator that runs every statement on q, such as
// an open transaction.
func (t *Table) In(q dbexec.Querier) *Table {
	c := *t
	c.exec = q
	return &c
}

// Entity waits until the table is reflected and returns its descriptor.
func (t *Table) Entity(ctx context.Context) (*introspection.Entity, error) {
	return t.registry.Ensure(ctx, t.name)
}

// New builds an unloaded record from the table defaults overlaid with values.
func (t *Table) New(values map[string]any) *hydrate.Record {
	merged := make(map[string]any, len(t.defaults)+len(values))
	for k, v := range t.defaults {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return hydrate.NewRecord(merged)
}

// AliasColumns renders every column of the table under alias in the
// _alias__column form that Load reads back.
func (t *Table) AliasColumns(ctx context.Context, alias string) (string, error) {
	entity, err := t.Entity(ctx)
	if err != nil {
		return "", err
	}
	return template.AliasColumns(t.db.cfg.Dialect, alias, entity, nil), nil
}

// LoadOptions drives Load. Entity is filled in from the table.
type LoadOptions = hydrate.Options

// Load materializes one row of this table. Pass the same Cache across the
// rows of a result to deduplicate.
func (t *Table) Load(ctx context.Context, row map[string]any, opts LoadOptions) (*hydrate.Record, error) {
	entity, err := t.Entity(ctx)
	if err != nil {
		return nil, err
	}
	opts.Entity = entity
	return t.db.materializer.Load(row, opts)
}

// lookup resolves entity names for the expander, preferring this table's
// own descriptor.
func (t *Table) lookup(own *introspection.Entity) func(string) (*introspection.Entity, bool) {
	return func(name string) (*introspection.Entity, bool) {
		if name == own.Name {
			return own, true
		}
		return t.db.registry.Lookup(name)
	}
}

// observe starts a span and returns a function that ends it and records
// the operation's metrics.
func (t *Table) observe(ctx context.Context, operation string) (context.Context, func(err error)) {
	ctx, span := otel.Tracer("daogen/dao").Start(ctx, "dao."+operation,
		trace.WithAttributes(
			attribute.String("db.system", string(t.db.cfg.Dialect)),
			attribute.String("db.table", t.name),
		),
	)
	start := time.Now()
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		t.db.cfg.Metrics.RecordOperation(ctx, t.name, operation, time.Since(start), err)
	}
}

func (t *Table) logSQL(ctx context.Context, operation, query string, args []any) {
	t.db.logger.DebugContext(ctx, "dao statement",
		slog.String("table", t.name),
		slog.String("operation", operation),
		slog.String("sql", query),
		slog.Int("args", len(args)),
	)
}
