// Package hydrate turns flat, prefix-encoded result rows into deduplicated,
// possibly nested records.
//
// Columns of the root entity appear under their plain names or, when the
// root is aliased, under _<alias>__<column>. Related entities named by a
// Fetch always use the prefixed form. One identity Cache is shared by every
// row of a pass, so a parent repeated by join fan-out resolves to a single
// record whose plural relations grow row by row.
package hydrate

import (
	"fmt"

	"daogen/internal/introspection"
	"daogen/internal/naming"
	"daogen/internal/template"
)

// Extra post-processes a record after it is built or found in the cache.
// It runs for every row, including rows that hit the cache.
type Extra func(rec *Record, row map[string]any, opts Options)

// Options drives one Load.
type Options struct {
	// Alias of the entity being loaded; empty for unprefixed columns.
	Alias string
	// Entity being loaded.
	Entity *introspection.Entity
	// Cache shared by every row of the pass. Nil disables deduplication.
	Cache   *Cache
	Aliases template.Aliases
	// Extra runs for the record Load is called for, never for fetched
	// relations. ExtraByAlias runs for its alias at any level.
	Extra        Extra
	ExtraByAlias map[string]Extra
	Fetch        Fetch
}

// Config controls how records are built.
type Config struct {
	// FieldName maps column names to record field names. Defaults to camelCase.
	FieldName func(column string) string
	Converter Converter
}

// Materializer builds records from rows.
type Materializer struct {
	fieldName func(string) string
	convert   Converter
}

// New returns a Materializer.
func New(cfg Config) *Materializer {
	fieldName := cfg.FieldName
	if fieldName == nil {
		fieldName = naming.FieldName
	}
	return &Materializer{fieldName: fieldName, convert: cfg.Converter}
}

// FieldName returns the record field name of a column.
func (m *Materializer) FieldName(column string) string {
	return m.fieldName(column)
}

// Load materializes opts.Entity from one row. It returns nil when the row
// carries no object for the entity: a key column is absent or null, or for
// a keyless entity the columns are absent (all null when prefixed).
func (m *Materializer) Load(row map[string]any, opts Options) (*Record, error) {
	entity := opts.Entity
	if entity == nil {
		return nil, fmt.Errorf("load %q: no entity", opts.Alias)
	}
	prefix := template.Prefix(opts.Alias)

	keyValues := make([]any, 0, len(entity.Keys))
	for _, key := range entity.Keys {
		v, ok := row[prefix+key]
		if !ok || v == nil {
			return nil, nil
		}
		col, _ := entity.Column(key)
		converted, err := m.convert.Convert(col, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity.Name, key, err)
		}
		keyValues = append(keyValues, converted)
	}
	if !entity.HasKeys() && !m.keylessPresent(row, prefix, entity) {
		return nil, nil
	}

	var (
		rec *Record
		key string
	)
	if entity.HasKeys() {
		key = IdentityKey(entity.Name, keyValues)
		if opts.Cache != nil {
			rec, _ = opts.Cache.Get(key)
		}
	}

	if rec == nil {
		var err error
		rec, err = m.build(row, prefix, entity)
		if err != nil {
			return nil, err
		}
		if key != "" && opts.Cache != nil {
			opts.Cache.Put(key, rec)
		}
	}

	if opts.Extra != nil {
		opts.Extra(rec, row, opts)
	} else if hook := opts.ExtraByAlias[opts.Alias]; hook != nil {
		hook(rec, row, opts)
	}

	for _, alias := range opts.Fetch.Aliases() {
		shape := opts.Fetch[alias]
		child := opts.Aliases[alias]
		if child == nil {
			continue
		}
		related, err := m.Load(row, Options{
			Alias:        alias,
			Entity:       child,
			Cache:        opts.Cache,
			Aliases:      opts.Aliases,
			ExtraByAlias: opts.ExtraByAlias,
			Fetch:        shape.Fetch,
		})
		if err != nil {
			return nil, err
		}
		switch shape.Kind {
		case Many:
			list := rec.Many(alias)
			if list == nil {
				list = []*Record{}
			}
			if related != nil && !containsRecord(list, related) {
				list = append(list, related)
			}
			rec.Set(alias, list)
		default:
			if related != nil {
				rec.Set(alias, related)
			}
		}
	}
	return rec, nil
}

// Collect loads every row with one cache and returns the distinct root
// records in first-seen order. The cache is opts.Cache, which callers pass
// fresh to read its statistics afterwards, or a new one when nil.
func (m *Materializer) Collect(rows []map[string]any, opts Options) ([]*Record, error) {
	if opts.Cache == nil {
		opts.Cache = NewCache()
	}
	out := make([]*Record, 0, len(rows))
	seen := make(map[*Record]struct{}, len(rows))
	for _, row := range rows {
		rec, err := m.Load(row, opts)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Materializer) build(row map[string]any, prefix string, entity *introspection.Entity) (*Record, error) {
	rec := &Record{fields: make(map[string]any, len(entity.Columns)), loaded: true}
	var snapshot map[string]any
	if !entity.HasKeys() {
		snapshot = make(map[string]any, len(entity.Columns))
	}
	for _, col := range entity.Columns {
		raw, ok := row[prefix+col.Name]
		if !ok {
			continue
		}
		v, err := m.convert.Convert(col, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity.Name, col.Name, err)
		}
		rec.Set(m.fieldName(col.Name), v)
		if snapshot != nil {
			snapshot[col.Name] = v
		}
	}
	if snapshot != nil {
		rec.SetSnapshot(snapshot)
	}
	return rec, nil
}

// keylessPresent decides whether a row carries a keyless entity. Unprefixed,
// any present column suffices. Prefixed, the all-null side of an outer join
// yields nothing.
func (m *Materializer) keylessPresent(row map[string]any, prefix string, entity *introspection.Entity) bool {
	for _, col := range entity.Columns {
		v, ok := row[prefix+col.Name]
		if !ok {
			continue
		}
		if prefix == "" || v != nil {
			return true
		}
	}
	return false
}

func containsRecord(list []*Record, rec *Record) bool {
	for _, r := range list {
		if r == rec {
			return true
		}
	}
	return false
}
