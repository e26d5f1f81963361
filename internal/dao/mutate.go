package dao

import (
	"context"
	"fmt"

	"daogen/internal/dbexec"
	"daogen/internal/hydrate"
	"daogen/internal/introspection"
	"daogen/internal/planner"
)

// Insert writes rec as a new row. Every column must be present in rec or be
// elidable. Elided columns are read back with RETURNING where the dialect
// has it; on MySQL a single elided key is read from LastInsertId. The record
// is marked loaded.
func (t *Table) Insert(ctx context.Context, rec *hydrate.Record) (err error) {
	ctx, done := t.observe(ctx, "insert")
	defer func() { done(err) }()

	entity, err := t.Entity(ctx)
	if err != nil {
		return err
	}
	values := t.columnValues(entity, rec)
	plan, err := t.db.planner.Insert(entity, values)
	if err != nil {
		return err
	}

	if len(plan.Returning) > 0 {
		rows, err := t.queryMaps(ctx, t.exec, "insert", plan.SQL, plan.Args)
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return &CardinalityError{Table: t.name, Operation: "insert", Expected: 1, Actual: int64(len(rows))}
		}
		for _, name := range plan.Returning {
			col, _ := entity.Column(name)
			v, err := t.db.converter.Convert(col, rows[0][name])
			if err != nil {
				return fmt.Errorf("insert %s.%s: %w", t.name, name, err)
			}
			values[name] = v
			rec.Set(t.writeName(rec, name), v)
		}
	} else {
		t.logSQL(ctx, "insert", plan.SQL, plan.Args)
		res, err := t.exec.ExecContext(ctx, plan.SQL, plan.Args...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", t.name, err)
		}
		if len(entity.Keys) == 1 && contains(plan.Elided, entity.Keys[0]) {
			if id, err := res.LastInsertId(); err == nil {
				values[entity.Keys[0]] = id
				rec.Set(t.writeName(rec, entity.Keys[0]), id)
			}
		}
	}

	if !entity.HasKeys() {
		rec.SetSnapshot(values)
	}
	rec.MarkLoaded(true)
	return nil
}

// Update writes the fields present in rec to the row it identifies by key
// or, for a keyless table, by its snapshot. Optimistic-concurrency columns
// get fresh values, written back to rec on success. Exactly one row must
// change; otherwise a CardinalityError is returned and the transaction is
// rolled back unless it belongs to the caller.
func (t *Table) Update(ctx context.Context, rec *hydrate.Record) (err error) {
	ctx, done := t.observe(ctx, "update")
	defer func() { done(err) }()

	entity, err := t.Entity(ctx)
	if err != nil {
		return err
	}
	concurrent := t.concurrencyColumns(entity)

	set := make(map[string]any)
	for _, col := range entity.Columns {
		if col.IsPrimaryKey || contains(concurrent, col.Name) {
			continue
		}
		if _, v, ok := t.fieldValue(rec, col.Name); ok {
			set[col.Name] = v
		}
	}
	if len(set) == 0 {
		return fmt.Errorf("%w: %s", ErrNothingToUpdate, t.name)
	}

	match, err := t.identify(entity, rec, concurrent)
	if err != nil {
		return err
	}
	fresh := make(map[string]any, len(concurrent))
	for _, name := range concurrent {
		v := t.concurrency.Value(name)
		set[name] = v
		fresh[name] = v
	}

	planned, err := t.db.planner.Update(entity, set, match)
	if err != nil {
		return err
	}
	if err := t.execOne(ctx, "update", planned); err != nil {
		return err
	}

	for name, v := range fresh {
		rec.Set(t.writeName(rec, name), v)
	}
	if !entity.HasKeys() {
		snapshot := make(map[string]any, len(match)+len(set))
		for k, v := range rec.Snapshot() {
			snapshot[k] = v
		}
		for k, v := range set {
			snapshot[k] = v
		}
		rec.SetSnapshot(snapshot)
	}
	return nil
}

// Upsert updates loaded records and inserts new ones. A new record whose
// every column is elidable and present is updated instead.
func (t *Table) Upsert(ctx context.Context, rec *hydrate.Record) error {
	if rec.Loaded() {
		return t.Update(ctx, rec)
	}
	entity, err := t.Entity(ctx)
	if err != nil {
		return err
	}
	for _, col := range entity.Columns {
		if _, _, ok := t.fieldValue(rec, col.Name); !col.Elidable || !ok {
			return t.Insert(ctx, rec)
		}
	}
	return t.Update(ctx, rec)
}

// Delete removes the row rec identifies, which must be exactly one row,
// and marks rec unloaded.
func (t *Table) Delete(ctx context.Context, rec *hydrate.Record) (err error) {
	ctx, done := t.observe(ctx, "delete")
	defer func() { done(err) }()

	entity, err := t.Entity(ctx)
	if err != nil {
		return err
	}
	match, err := t.identify(entity, rec, t.concurrencyColumns(entity))
	if err != nil {
		return err
	}
	planned, err := t.db.planner.Delete(entity, match)
	if err != nil {
		return err
	}
	if err := t.execOne(ctx, "delete", planned); err != nil {
		return err
	}
	rec.MarkLoaded(false)
	return nil
}

// DeleteWhere removes every row matching cond and returns how many were
// removed. An empty condition is refused.
func (t *Table) DeleteWhere(ctx context.Context, cond any, args ...any) (_ int64, err error) {
	ctx, done := t.observe(ctx, "delete_where")
	defer func() { done(err) }()

	if planner.IsEmptyCondition(cond) {
		return 0, fmt.Errorf("%w: %s", ErrEmptyCondition, t.name)
	}
	entity, err := t.Entity(ctx)
	if err != nil {
		return 0, err
	}
	planned, err := t.db.planner.DeleteWhere(entity, cond, args...)
	if err != nil {
		return 0, err
	}
	t.logSQL(ctx, "delete_where", planned.SQL, planned.Args)
	res, err := t.exec.ExecContext(ctx, planned.SQL, planned.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// identify builds the match condition locating rec: its key values plus
// any concurrency columns it carries, or its snapshot when keyless.
func (t *Table) identify(entity *introspection.Entity, rec *hydrate.Record, concurrent []string) (map[string]any, error) {
	match := make(map[string]any)
	if !entity.HasKeys() {
		snapshot := rec.Snapshot()
		if len(snapshot) == 0 {
			return nil, fmt.Errorf("%w: %s has no key and no snapshot", ErrUnidentifiable, t.name)
		}
		for k, v := range snapshot {
			match[k] = v
		}
		return match, nil
	}
	for _, key := range entity.Keys {
		_, v, ok := t.fieldValue(rec, key)
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %s.%s is not set", ErrUnidentifiable, t.name, key)
		}
		match[key] = v
	}
	for _, name := range concurrent {
		if _, v, ok := t.fieldValue(rec, name); ok {
			match[name] = v
		}
	}
	return match, nil
}

// execOne runs a statement in a transaction and requires it to affect
// exactly one row.
func (t *Table) execOne(ctx context.Context, operation string, planned planner.SQLQuery) error {
	t.logSQL(ctx, operation, planned.SQL, planned.Args)
	return dbexec.InTx(ctx, t.exec, func(tx dbexec.Querier) error {
		res, err := tx.ExecContext(ctx, planned.SQL, planned.Args...)
		if err != nil {
			return fmt.Errorf("%s %s: %w", operation, t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s %s: %w", operation, t.name, err)
		}
		if n != 1 {
			return &CardinalityError{Table: t.name, Operation: operation, Expected: 1, Actual: n}
		}
		return nil
	})
}

// columnValues collects the column values present in rec.
func (t *Table) columnValues(entity *introspection.Entity, rec *hydrate.Record) map[string]any {
	values := make(map[string]any, len(entity.Columns))
	for _, col := range entity.Columns {
		if _, v, ok := t.fieldValue(rec, col.Name); ok {
			values[col.Name] = v
		}
	}
	return values
}

// fieldValue reads a column from rec by its column name, then by its field
// name, and reports which one held it.
func (t *Table) fieldValue(rec *hydrate.Record, column string) (string, any, bool) {
	if v, ok := rec.Get(column); ok {
		return column, v, true
	}
	field := t.db.materializer.FieldName(column)
	if v, ok := rec.Get(field); ok {
		return field, v, true
	}
	return "", nil, false
}

// writeName is the field a column value is written back to.
func (t *Table) writeName(rec *hydrate.Record, column string) string {
	if name, _, ok := t.fieldValue(rec, column); ok {
		return name
	}
	return t.db.materializer.FieldName(column)
}

// concurrencyColumns returns the configured concurrency columns the table
// has, in table order.
func (t *Table) concurrencyColumns(entity *introspection.Entity) []string {
	var names []string
	for _, col := range entity.Columns {
		if contains(t.concurrency.Columns, col.Name) {
			names = append(names, col.Name)
		}
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
