// Package template expands the entity templating syntax layered on SQL.
//
// @entity [AS] alias binds an alias to a registered entity and renders as
// "entity" AS "alias". @alias.* renders every column of the bound entity as
// "alias"."column" AS "_alias__column", @alias.column renders a single one and
// @:alias.column renders only the synthesized "_alias__column" name. Bare ?
// placeholders and :name parameters render as dialect bindvars.
package template

import (
	"errors"
	"fmt"
	"strings"

	"daogen/internal/introspection"
	"daogen/internal/sqlutil"
)

// ErrMissingParam is returned when a :name parameter has no value.
var ErrMissingParam = errors.New("missing named parameter")

// Aliases maps aliases bound by entity references to their entities.
type Aliases map[string]*introspection.Entity

// Binding records one entity reference in query order.
type Binding struct {
	Alias  string
	Entity *introspection.Entity
}

// Options controls an expansion.
type Options struct {
	Dialect sqlutil.Dialect
	// Lookup resolves entity names; unresolved entity references stay verbatim.
	Lookup func(name string) (*introspection.Entity, bool)
	// Exclude lists columns omitted from @alias.* per alias.
	Exclude map[string][]string
	// Args are consumed in order by bare ? placeholders. Any left over are
	// appended after the bound values.
	Args   []any
	Params map[string]any
}

// Result is expanded query text plus its bound values.
type Result struct {
	SQL      string
	Aliases  Aliases
	Bindings []Binding
	Args     []any
}

// Prefix returns the column prefix synthesized for alias. The root entity of
// a result uses the empty alias and has no prefix.
func Prefix(alias string) string {
	if alias == "" {
		return ""
	}
	return "_" + alias + "__"
}

// ColumnAlias returns the synthesized result column name for alias.column.
func ColumnAlias(alias, column string) string {
	return Prefix(alias) + column
}

// EntityNames returns the distinct entity names referenced by query, in order.
func EntityNames(query string, dialect sqlutil.Dialect) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(query, dialect) {
		if tok.Kind != EntityRef {
			continue
		}
		if _, ok := seen[tok.Entity]; ok {
			continue
		}
		seen[tok.Entity] = struct{}{}
		names = append(names, tok.Entity)
	}
	return names
}

// Expand rewrites query. Entity references are bound before column
// references render, so a column reference may precede its entity.
func Expand(query string, opts Options) (*Result, error) {
	tokens := Tokenize(query, opts.Dialect)

	res := &Result{Aliases: make(Aliases)}
	for _, tok := range tokens {
		if tok.Kind != EntityRef || opts.Lookup == nil {
			continue
		}
		entity, ok := opts.Lookup(tok.Entity)
		if !ok {
			continue
		}
		alias := tok.Alias
		if alias == "" {
			alias = tok.Entity
		}
		res.Aliases[alias] = entity
		res.Bindings = append(res.Bindings, Binding{Alias: alias, Entity: entity})
	}

	var (
		b          strings.Builder
		positional int
		bindvar    int
	)
	b.Grow(len(query))
	for _, tok := range tokens {
		switch tok.Kind {
		case Literal:
			b.WriteString(tok.Text)

		case EntityRef:
			var entity *introspection.Entity
			if opts.Lookup != nil {
				entity, _ = opts.Lookup(tok.Entity)
			}
			if entity == nil {
				b.WriteString(tok.Text)
				continue
			}
			alias := tok.Alias
			if alias == "" {
				alias = tok.Entity
			}
			b.WriteString(opts.Dialect.QuoteIdentifier(entity.Name))
			b.WriteString(" AS ")
			b.WriteString(opts.Dialect.QuoteIdentifier(alias))

		case ColumnRef:
			entity, ok := res.Aliases[tok.Alias]
			if !ok {
				b.WriteString(tok.Text)
				continue
			}
			b.WriteString(renderColumnRef(opts.Dialect, tok, entity, opts.Exclude[tok.Alias]))

		case Placeholder:
			bindvar++
			b.WriteString(opts.Dialect.Bindvar(bindvar))
			if positional < len(opts.Args) {
				res.Args = append(res.Args, opts.Args[positional])
				positional++
			}

		case NamedParam:
			value, ok := opts.Params[tok.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingParam, tok.Name)
			}
			bindvar++
			b.WriteString(opts.Dialect.Bindvar(bindvar))
			res.Args = append(res.Args, value)
		}
	}
	res.Args = append(res.Args, opts.Args[positional:]...)
	res.SQL = b.String()
	return res, nil
}

func renderColumnRef(d sqlutil.Dialect, tok Token, entity *introspection.Entity, exclude []string) string {
	if tok.Column == Wildcard {
		return AliasColumns(d, tok.Alias, entity, exclude)
	}
	if _, ok := entity.Column(tok.Column); !ok {
		return ""
	}
	synthesized := d.QuoteIdentifier(ColumnAlias(tok.Alias, tok.Column))
	if tok.Direct {
		return synthesized
	}
	return d.QuoteIdentifier(tok.Alias) + "." + d.QuoteIdentifier(tok.Column) + " AS " + synthesized
}

// AliasColumns renders every column of entity under alias as
// "alias"."column" AS "_alias__column", skipping excluded columns.
func AliasColumns(d sqlutil.Dialect, alias string, entity *introspection.Entity, exclude []string) string {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	parts := make([]string, 0, len(entity.Columns))
	for _, col := range entity.Columns {
		if _, ok := skip[col.Name]; ok {
			continue
		}
		parts = append(parts, d.QuoteIdentifier(alias)+"."+d.QuoteIdentifier(col.Name)+
			" AS "+d.QuoteIdentifier(ColumnAlias(alias, col.Name)))
	}
	return strings.Join(parts, ", ")
}
