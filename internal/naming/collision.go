package naming

import (
	"log/slog"
	"strconv"
)

// fieldRegistry remembers which column claimed each Go field name of each
// generated struct.
type fieldRegistry struct {
	claimed map[string]map[string]string // struct -> field -> column
	logger  *slog.Logger
}

func newFieldRegistry(logger *slog.Logger) *fieldRegistry {
	return &fieldRegistry{claimed: make(map[string]map[string]string), logger: logger}
}

// claim returns field, or the first free field2, field3, ... when another
// column of the same struct already holds field.
func (r *fieldRegistry) claim(structName, field, column string) string {
	fields := r.claimed[structName]
	if fields == nil {
		fields = make(map[string]string)
		r.claimed[structName] = fields
	}
	owner, taken := fields[field]
	if !taken {
		fields[field] = column
		return field
	}

	name := field
	for i := 2; taken; i++ {
		name = field + strconv.Itoa(i)
		_, taken = fields[name]
	}
	fields[name] = column
	r.logger.Warn("go field name collision, applying suffix",
		slog.String("struct", structName),
		slog.String("field", field),
		slog.String("column", column),
		slog.String("conflicts_with", owner),
		slog.String("renamed", name),
	)
	return name
}
