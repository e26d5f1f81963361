// Package sqltype provides a shared mapping from source column types, as
// reported by Postgres, MySQL/TiDB and SQLite reflection, to value categories.
// The categories drive value conversion during hydration and Go type
// selection during code generation.
package sqltype

import "strings"

// Category represents the kind of value a column holds.
type Category int

const (
	// String is the default category for text, enums, and unknown types.
	String Category = iota
	// Int represents integer numeric types.
	Int
	// Float represents floating-point types.
	Float
	// Decimal represents fixed-point numeric types.
	Decimal
	// Bool represents boolean types.
	Bool
	// JSON represents JSON documents.
	JSON
	// Bytes represents binary strings.
	Bytes
	// Time represents dates, times, and timestamps.
	Time
	// Array represents Postgres array types.
	Array
	// UUID represents native uuid columns.
	UUID
)

// Map converts a source type name to its category. The input is
// case-insensitive. Size specifiers like (10,2) or (255) are stripped before
// matching, and a leading underscore (Postgres array type names) maps to Array.
func Map(sourceType string) Category {
	t := strings.ToLower(strings.TrimSpace(sourceType))
	if strings.HasPrefix(t, "_") || strings.HasSuffix(t, "[]") {
		return Array
	}
	if idx := strings.Index(t, "("); idx != -1 {
		t = strings.TrimSpace(t[:idx])
	}
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"int2", "int4", "int8", "serial", "bigserial", "smallserial", "bit", "year":
		return Int
	case "float", "double", "double precision", "real", "float4", "float8":
		return Float
	case "decimal", "numeric", "money":
		return Decimal
	case "bool", "boolean":
		return Bool
	case "json", "jsonb":
		return JSON
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return Bytes
	case "uuid", "uniqueidentifier":
		return UUID
	case "date", "datetime", "timestamp", "timestamptz", "time", "timetz",
		"timestamp without time zone", "timestamp with time zone":
		return Time
	default:
		return String
	}
}

// String returns a short name for the category.
func (c Category) String() string {
	switch c {
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Bool:
		return "bool"
	case JSON:
		return "json"
	case Bytes:
		return "bytes"
	case Time:
		return "time"
	case Array:
		return "array"
	case UUID:
		return "uuid"
	default:
		return "string"
	}
}

// IsJSON reports whether a source type holds JSON documents.
func IsJSON(sourceType string) bool {
	return Map(sourceType) == JSON
}
