// Package config loads daogen configuration from flags, environment
// variables (DAOGEN_ prefix), a daogen.yaml file, and defaults, in that
// order of precedence.
package config

import (
	"time"

	"daogen/internal/naming"
	"daogen/internal/observability"
)

// Config is the complete daogen configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	DAO           DAOConfig           `mapstructure:"dao"`
	Naming        naming.Config       `mapstructure:"naming"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DatabaseConfig locates the database. A DSN wins over the discrete fields.
type DatabaseConfig struct {
	Dialect        string     `mapstructure:"dialect"`
	DSN            string     `mapstructure:"dsn"`
	DSNFile        string     `mapstructure:"dsn_file"`
	Host           string     `mapstructure:"host"`
	Port           int        `mapstructure:"port"`
	User           string     `mapstructure:"user"`
	Password       string     `mapstructure:"password"`
	PasswordFile   string     `mapstructure:"password_file"`
	PasswordPrompt bool       `mapstructure:"password_prompt"`
	Database       string     `mapstructure:"database"`
	Pool           PoolConfig `mapstructure:"pool"`
}

// PoolConfig sizes the database/sql connection pool. Zero keeps the
// database/sql default.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DAOConfig shapes records and statements.
type DAOConfig struct {
	// CamelCase names record fields testId for column test_id.
	CamelCase       bool `mapstructure:"camel_case"`
	DecimalNumerics bool `mapstructure:"decimal_numerics"`
	// OptimisticConcurrency lists the version columns refreshed on update.
	OptimisticConcurrency ConcurrencyConfig `mapstructure:"optimistic_concurrency"`
	// Casts maps table -> column -> cast type.
	Casts map[string]map[string]string `mapstructure:"casts"`
}

// ConcurrencyConfig selects the version columns and how their next value
// is produced: "now" or "uuid".
type ConcurrencyConfig struct {
	Columns []string `mapstructure:"columns"`
	Value   string   `mapstructure:"value"`
}

// ObservabilityConfig controls logging, metrics and tracing.
type ObservabilityConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	ServiceVersion   string  `mapstructure:"service_version"`
	Environment      string  `mapstructure:"environment"`
	MetricsEnabled   bool    `mapstructure:"metrics_enabled"`
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`

	Logging LoggingConfig                    `mapstructure:"logging"`
	OTLP    observability.OTLPExporterConfig `mapstructure:"otlp"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	ExportsEnabled bool   `mapstructure:"exports_enabled"`
}

// Telemetry converts the observability settings for the observability package.
func (o ObservabilityConfig) Telemetry() observability.Config {
	return observability.Config{
		ServiceName:      o.ServiceName,
		ServiceVersion:   o.ServiceVersion,
		Environment:      o.Environment,
		TraceSampleRatio: o.TraceSampleRatio,
		OTLP:             o.OTLP,
	}
}
