package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DAOMetrics holds custom metrics for data-access operations.
// A nil *DAOMetrics records nothing.
type DAOMetrics struct {
	operationDuration metric.Float64Histogram
	operationCounter  metric.Int64Counter
	errorCounter      metric.Int64Counter
	rowsScanned       metric.Int64Histogram
	recordsReturned   metric.Int64Histogram
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
}

// InitDAOMetrics initializes DAO metrics on the global meter provider.
func InitDAOMetrics() (*DAOMetrics, error) {
	meter := otel.Meter("daogen")

	operationDuration, err := meter.Float64Histogram(
		"dao.operation.duration",
		metric.WithDescription("Duration of DAO operations in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	operationCounter, err := meter.Int64Counter(
		"dao.operations.total",
		metric.WithDescription("Total number of DAO operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"dao.errors.total",
		metric.WithDescription("Total number of failed DAO operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	rowsScanned, err := meter.Int64Histogram(
		"dao.rows.scanned",
		metric.WithDescription("Number of rows read by a query"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows scanned histogram: %w", err)
	}

	recordsReturned, err := meter.Int64Histogram(
		"dao.records.returned",
		metric.WithDescription("Number of root records returned after deduplication"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create records returned histogram: %w", err)
	}

	cacheHits, err := meter.Int64Counter(
		"dao.identity_cache.hits",
		metric.WithDescription("Number of rows resolved from the identity cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity cache hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter(
		"dao.identity_cache.misses",
		metric.WithDescription("Number of records built because the identity cache missed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity cache misses counter: %w", err)
	}

	return &DAOMetrics{
		operationDuration: operationDuration,
		operationCounter:  operationCounter,
		errorCounter:      errorCounter,
		rowsScanned:       rowsScanned,
		recordsReturned:   recordsReturned,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
	}, nil
}

// RecordOperation records one DAO operation with its duration and outcome.
func (m *DAOMetrics) RecordOperation(ctx context.Context, table, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("table", table),
		attribute.String("operation", operation),
		attribute.Bool("has_errors", err != nil),
	}
	m.operationDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.operationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("table", table),
			attribute.String("operation", operation),
		))
	}
}

// RecordMaterialization records the rows read by one pass, the records it
// returned and its identity cache statistics.
func (m *DAOMetrics) RecordMaterialization(ctx context.Context, table string, rows, records, hits, misses int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("table", table))
	m.rowsScanned.Record(ctx, int64(rows), attrs)
	m.recordsReturned.Record(ctx, int64(records), attrs)
	if hits > 0 {
		m.cacheHits.Add(ctx, int64(hits), attrs)
	}
	if misses > 0 {
		m.cacheMisses.Add(ctx, int64(misses), attrs)
	}
}

// InitMetrics initializes all custom metrics.
func InitMetrics(logger *slog.Logger) (*DAOMetrics, *ReflectionMetrics, error) {
	dao, err := InitDAOMetrics()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize DAO metrics: %w", err)
	}
	reflection, err := InitReflectionMetrics()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize reflection metrics: %w", err)
	}
	logger.Info("custom DAO metrics initialized")
	return dao, reflection, nil
}
