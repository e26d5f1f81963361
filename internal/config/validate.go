package config

import (
	"fmt"
	"strings"

	"daogen/internal/logging"
	"daogen/internal/sqlutil"
)

// ValidationError is a fatal configuration problem.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning is a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

// ValidationResult collects every problem found by Validate.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors reports whether any fatal problem was found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error joins the error messages.
func (r *ValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Err returns the result as an error, or nil when there are no errors.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return r
}

func (r *ValidationResult) fail(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) warn(field, message string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message})
}

// Validate checks the whole configuration.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.DAO.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(r *ValidationResult) {
	dialect, err := d.ResolvedDialect()
	if err != nil {
		r.fail("database.dialect", err.Error(), "")
		return
	}
	if d.DSN != "" && d.Password != "" {
		r.warn("database.password", "ignored because database.dsn is set")
	}
	switch dialect {
	case sqlutil.SQLite:
		if d.DSN == "" && d.Database == "" {
			r.fail("database.database", "sqlite needs a database file", "set database.dsn or database.database")
		}
	default:
		if d.DSN == "" && d.Host == "" {
			r.fail("database.host", "is required when database.dsn is not set", "")
		}
		if d.Port < 0 || d.Port > 65535 {
			r.fail("database.port", fmt.Sprintf("%d is out of range", d.Port), "")
		}
		if dialect == sqlutil.MySQL && d.DSN != "" {
			if _, err := d.mysqlDSN(); err != nil {
				r.fail("database.dsn", err.Error(), "use user:pass@tcp(host:port)/db")
			}
		}
	}
	if d.Pool.MaxOpen < 0 || d.Pool.MaxIdle < 0 || d.Pool.MaxLifetime < 0 {
		r.fail("database.pool", "values must not be negative", "")
	}
	if d.Pool.MaxOpen > 0 && d.Pool.MaxIdle > d.Pool.MaxOpen {
		r.warn("database.pool.max_idle", "exceeds max_open and will be capped")
	}
}

func (d *DAOConfig) validate(r *ValidationResult) {
	switch d.OptimisticConcurrency.Value {
	case "", "now", "uuid":
	default:
		r.fail("dao.optimistic_concurrency.value",
			fmt.Sprintf("unknown strategy %q", d.OptimisticConcurrency.Value), "use now or uuid")
	}
	for _, col := range d.OptimisticConcurrency.Columns {
		if strings.TrimSpace(col) == "" {
			r.fail("dao.optimistic_concurrency.columns", "contains an empty column name", "")
		}
	}
	for table, cols := range d.Casts {
		for col, cast := range cols {
			if strings.TrimSpace(cast) == "" {
				r.fail(fmt.Sprintf("dao.casts.%s.%s", table, col), "cast type is empty", "")
			}
		}
	}
}

func (o *ObservabilityConfig) validate(r *ValidationResult) {
	if _, err := logging.ParseLevel(o.Logging.Level); err != nil {
		r.fail("observability.logging.level", err.Error(), "use debug, info, warn or error")
	}
	switch o.Logging.Format {
	case "", "text", "json":
	default:
		r.fail("observability.logging.format", fmt.Sprintf("unknown format %q", o.Logging.Format), "use text or json")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		r.fail("observability.trace_sample_ratio", "must be between 0 and 1", "")
	}
	needsOTLP := o.TracingEnabled || o.Logging.ExportsEnabled
	if needsOTLP && o.OTLP.Endpoint == "" {
		r.fail("observability.otlp.endpoint", "is required when tracing or log export is enabled", "")
	}
	if !needsOTLP && o.OTLP.Endpoint != "" {
		r.warn("observability.otlp.endpoint", "set but no OTLP signal is enabled")
	}
}
