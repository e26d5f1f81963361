package naming

import (
	"log/slog"
	"strings"
)

// Namer provides the name transformations used by the generator: record
// field names for hydrated objects, and Go type and field names for code
// generation. It handles singularization, reserved words, and collisions.
type Namer struct {
	config Config
	logger *slog.Logger
	fields *fieldRegistry
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config: cfg,
		logger: logger,
		fields: newFieldRegistry(logger),
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Reset forgets registered fields so the namer can serve another
// generation run.
func (n *Namer) Reset() {
	n.fields = newFieldRegistry(n.logger)
}

// FieldName converts a column name to the record field name (camelCase).
// Example: "test_id" -> "testId"
func FieldName(columnName string) string {
	return toCamelCase(columnName)
}

// TypeName converts a table name to a singular Go type name.
// Example: "order_items" -> "OrderItem"
func (n *Namer) TypeName(tableName string) string {
	if override, ok := n.config.TypeOverrides[tableName]; ok && override != "" {
		return override
	}
	parts := splitTokens(tableName)
	if len(parts) == 0 {
		return ""
	}
	parts[len(parts)-1] = n.Singularize(parts[len(parts)-1])
	name := toGoName(strings.Join(parts, "_"))
	if name != "" && !isIdentStart(name[0]) {
		safeName := "T" + name
		n.logger.Warn("type name does not start with a letter, prefixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}

// RegisterGoField registers the Go struct field name for a column within a
// type and returns the resolved name. Columns that map to the same Go name
// receive numeric suffixes.
func (n *Namer) RegisterGoField(typeName, columnName string) string {
	name := toGoName(columnName)
	if name == "" || !isIdentStart(name[0]) {
		name = "F" + name
	}
	return n.fields.claim(typeName, name, columnName)
}

// commonInitialisms are rendered fully upper-cased in Go identifiers.
var commonInitialisms = map[string]bool{
	"ID": true, "URL": true, "URI": true, "API": true, "JSON": true,
	"HTTP": true, "HTML": true, "SQL": true, "UUID": true, "IP": true,
	"XML": true, "DB": true,
}

func splitTokens(name string) []string {
	tokens := strings.Split(strings.ToLower(name), "_")
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}

// toGoName converts snake_case to PascalCase, upper-casing common initialisms.
// Example: "user_id" -> "UserID", "api_url" -> "APIURL"
func toGoName(s string) string {
	var b strings.Builder
	for _, part := range splitTokens(s) {
		if commonInitialisms[strings.ToUpper(part)] {
			b.WriteString(strings.ToUpper(part))
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
