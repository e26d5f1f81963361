// Package naming provides centralized naming logic: column names to record
// field names, and table/column names to Go identifiers for generated code,
// including singularization, collision detection, and reserved word handling.
package naming

// Config holds naming customization options
type Config struct {
	// SingularOverrides maps plural -> custom singular
	// Example: {"people": "person", "data": "datum"}
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`

	// TypeOverrides maps table name -> Go type name used by code generation.
	TypeOverrides map[string]string `mapstructure:"type_overrides"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		SingularOverrides: make(map[string]string),
		TypeOverrides:     make(map[string]string),
	}
}
