package dao

import (
	"context"
	"errors"
	"fmt"

	"daogen/internal/dbexec"
	"daogen/internal/hydrate"
	"daogen/internal/introspection"
	"daogen/internal/planner"
	"daogen/internal/template"
)

// QueryOptions shapes a templated query.
type QueryOptions struct {
	// Exclude omits columns from @alias.* expansions, per alias.
	Exclude map[string][]string
	// Fetch describes the related records attached to each root.
	Fetch hydrate.Fetch
	// With holds per-alias shapes merged into a fetch when Fetch is nil.
	// Aliases the query does not bind are dropped.
	With hydrate.Fetch
	// Extra runs for every root record; ExtraByAlias for records of its
	// alias at any level. Extra wins for the root when both are set.
	Extra        hydrate.Extra
	ExtraByAlias map[string]hydrate.Extra
	// Alias of the root entity. Defaults to the last alias bound to this
	// table, or the unprefixed columns when the query binds none.
	Alias  string
	Params map[string]any
	// Exec overrides the executor, e.g. with an open transaction.
	Exec dbexec.Querier
}

// Find returns the rows matching cond: nil for every row, a SQL condition
// with ? placeholders bound to args, or a column filter map.
func (t *Table) Find(ctx context.Context, cond any, args ...any) (_ []*hydrate.Record, err error) {
	ctx, done := t.observe(ctx, "find")
	defer func() { done(err) }()

	entity, err := t.Entity(ctx)
	if err != nil {
		return nil, err
	}
	planned, err := t.db.planner.Select(entity, cond, args, planner.SelectOptions{})
	if err != nil {
		return nil, err
	}
	rows, err := t.queryMaps(ctx, t.exec, "find", planned.SQL, planned.Args)
	if err != nil {
		return nil, err
	}
	return t.collect(ctx, rows, hydrate.Options{Entity: entity})
}

// FindOne returns the first row matching cond, or ErrNotFound.
func (t *Table) FindOne(ctx context.Context, cond any, args ...any) (_ *hydrate.Record, err error) {
	ctx, done := t.observe(ctx, "find_one")
	defer func() { done(err) }()

	entity, err := t.Entity(ctx)
	if err != nil {
		return nil, err
	}
	planned, err := t.db.planner.Select(entity, cond, args, planner.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	rows, err := t.queryMaps(ctx, t.exec, "find_one", planned.SQL, planned.Args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, t.name)
	}
	rec, err := t.db.materializer.Load(rows[0], hydrate.Options{Entity: entity})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, t.name)
	}
	return rec, nil
}

// Query expands a templated query, runs it, and materializes the distinct
// root records of this table in first-seen order.
func (t *Table) Query(ctx context.Context, query string, opts QueryOptions, args ...any) (_ []*hydrate.Record, err error) {
	ctx, done := t.observe(ctx, "query")
	defer func() { done(err) }()

	expanded, err := t.Expand(ctx, query, ExpandOptions{Exclude: opts.Exclude, Params: opts.Params}, args...)
	if err != nil {
		return nil, err
	}
	entity, err := t.Entity(ctx)
	if err != nil {
		return nil, err
	}

	exec := opts.Exec
	if exec == nil {
		exec = t.exec
	}
	rows, err := t.queryMaps(ctx, exec, "query", expanded.SQL, expanded.Args)
	if err != nil {
		return nil, err
	}

	fetch := opts.Fetch
	if fetch == nil && len(opts.With) > 0 {
		fetch = hydrate.Fetch{}
		for alias, shape := range opts.With {
			if _, ok := expanded.Aliases[alias]; ok {
				fetch[alias] = shape
			}
		}
	}

	alias := opts.Alias
	if alias == "" {
		alias = RootAlias(expanded, entity)
	}

	return t.collect(ctx, rows, hydrate.Options{
		Alias:        alias,
		Entity:       entity,
		Aliases:      expanded.Aliases,
		Extra:        opts.Extra,
		ExtraByAlias: opts.ExtraByAlias,
		Fetch:        fetch,
	})
}

// ExpandOptions controls Expand.
type ExpandOptions struct {
	Exclude map[string][]string
	Params  map[string]any
}

// Expand resolves the entities a templated query references, reflecting
// them on first use, and expands the query. References to names that are
// not tables stay verbatim.
func (t *Table) Expand(ctx context.Context, query string, opts ExpandOptions, args ...any) (*template.Result, error) {
	entity, err := t.Entity(ctx)
	if err != nil {
		return nil, err
	}
	d := t.db.cfg.Dialect
	for _, name := range template.EntityNames(query, d) {
		if name == entity.Name {
			continue
		}
		if _, err := t.db.registry.Ensure(ctx, name); err != nil && !errors.Is(err, introspection.ErrEntityNotFound) {
			return nil, err
		}
	}
	return template.Expand(query, template.Options{
		Dialect: d,
		Lookup:  t.lookup(entity),
		Exclude: opts.Exclude,
		Args:    args,
		Params:  opts.Params,
	})
}

// RootAlias returns the last alias bound to entity, or "" when none is.
func RootAlias(res *template.Result, entity *introspection.Entity) string {
	alias := ""
	for _, b := range res.Bindings {
		if b.Entity == entity || (b.Entity != nil && b.Entity.Name == entity.Name) {
			alias = b.Alias
		}
	}
	return alias
}

func (t *Table) queryMaps(ctx context.Context, exec dbexec.Querier, operation, query string, args []any) ([]map[string]any, error) {
	t.logSQL(ctx, operation, query, args)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", operation, t.name, err)
	}
	maps, err := dbexec.ScanMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", operation, t.name, err)
	}
	return maps, nil
}

func (t *Table) collect(ctx context.Context, rows []map[string]any, opts hydrate.Options) ([]*hydrate.Record, error) {
	opts.Cache = hydrate.NewCache()
	records, err := t.db.materializer.Collect(rows, opts)
	if err != nil {
		return nil, err
	}
	hits, misses := opts.Cache.Stats()
	t.db.cfg.Metrics.RecordMaterialization(ctx, t.name, len(rows), len(records), hits, misses)
	return records, nil
}
