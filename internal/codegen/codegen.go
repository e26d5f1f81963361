// Package codegen renders Go struct definitions for reflected tables. The
// structs carry json tags matching record field names, so a hydrated
// record decodes straight into them.
package codegen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"daogen/internal/introspection"
	"daogen/internal/naming"
	"daogen/internal/sqltype"
)

// Options controls code generation.
type Options struct {
	// Package is the package clause of the generated file. Defaults to "models".
	Package string
	// Namer derives type and field names. Defaults to naming.Default().
	Namer *naming.Namer
	// PreserveColumnNames uses column names instead of camelCase field names
	// in json tags, matching a DAO configured the same way.
	PreserveColumnNames bool
	// DecimalNumerics types numeric columns as decimal.Decimal.
	DecimalNumerics bool
}

func (o Options) withDefaults() Options {
	if o.Package == "" {
		o.Package = "models"
	}
	if o.Namer == nil {
		o.Namer = naming.Default()
	}
	return o
}

// File renders one struct per entity into a single Go file.
func File(entities []*introspection.Entity, opts Options) *jen.File {
	opts = opts.withDefaults()
	f := jen.NewFile(opts.Package)
	f.HeaderComment("Code generated by daogen. DO NOT EDIT.")
	for _, entity := range entities {
		genStruct(f, entity, opts)
	}
	return f
}

// Struct renders the Go source of a file holding entity's struct.
func Struct(entity *introspection.Entity, opts Options) (string, error) {
	if entity == nil || len(entity.Columns) == 0 {
		return "", fmt.Errorf("codegen: %w", introspection.ErrEntityNotFound)
	}
	var b strings.Builder
	if err := File([]*introspection.Entity{entity}, opts).Render(&b); err != nil {
		return "", fmt.Errorf("codegen %s: %w", entity.Name, err)
	}
	return b.String(), nil
}

func genStruct(f *jen.File, entity *introspection.Entity, opts Options) {
	typeName := opts.Namer.TypeName(entity.Name)
	f.Commentf("%s is a row of the %s table.", typeName, entity.Name)
	f.Type().Id(typeName).StructFunc(func(group *jen.Group) {
		for _, col := range entity.Columns {
			field := opts.Namer.RegisterGoField(typeName, col.Name)
			tag := naming.FieldName(col.Name)
			if opts.PreserveColumnNames {
				tag = col.Name
			}
			group.Id(field).Add(goType(col, opts)).Tag(map[string]string{
				"db":   col.Name,
				"json": tag + omitEmpty(col),
			})
		}
	})

	f.Commentf("TableName returns the table %s is read from.", typeName)
	f.Func().Params(jen.Id(typeName)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(entity.Name)),
	)
}

// goType picks the field type for a column. Elidable non-key columns are
// pointers so an absent value stays distinguishable from the zero value.
func goType(col introspection.Column, opts Options) jen.Code {
	base := baseType(col, opts)
	if col.Elidable && !col.IsPrimaryKey && nillable(col) {
		return jen.Op("*").Add(base)
	}
	return base
}

func nillable(col introspection.Column) bool {
	switch category(col) {
	case sqltype.JSON, sqltype.Bytes, sqltype.Array:
		return false
	}
	return true
}

func omitEmpty(col introspection.Column) string {
	if col.Elidable {
		return ",omitempty"
	}
	return ""
}

func category(col introspection.Column) sqltype.Category {
	if col.IsJSON {
		return sqltype.JSON
	}
	return sqltype.Map(col.SourceType)
}

func baseType(col introspection.Column, opts Options) *jen.Statement {
	switch category(col) {
	case sqltype.Int:
		return jen.Int64()
	case sqltype.Float:
		return jen.Float64()
	case sqltype.Decimal:
		if opts.DecimalNumerics {
			return jen.Qual("github.com/shopspring/decimal", "Decimal")
		}
		return jen.String()
	case sqltype.Bool:
		return jen.Bool()
	case sqltype.JSON:
		return jen.Any()
	case sqltype.Bytes:
		return jen.Index().Byte()
	case sqltype.Time:
		return jen.Qual("time", "Time")
	case sqltype.Array:
		return jen.Index().Add(arrayElement(col.SourceType))
	default:
		return jen.String()
	}
}

func arrayElement(sourceType string) *jen.Statement {
	element := strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(sourceType), "_"), "[]")
	switch sqltype.Map(element) {
	case sqltype.Int:
		return jen.Int64()
	case sqltype.Float:
		return jen.Float64()
	case sqltype.Bool:
		return jen.Bool()
	default:
		return jen.String()
	}
}
