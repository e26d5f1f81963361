package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ReflectionMetrics holds metrics for entity reflection through the registry.
// A nil *ReflectionMetrics records nothing.
type ReflectionMetrics struct {
	reflectCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	durationHist    metric.Float64Histogram
	entitiesLoaded  atomic.Int64
	lastSuccessUnix atomic.Int64
}

// InitReflectionMetrics initializes reflection metrics.
func InitReflectionMetrics() (*ReflectionMetrics, error) {
	meter := otel.Meter("daogen")

	reflectCounter, err := meter.Int64Counter(
		"registry.reflect.total",
		metric.WithDescription("Total number of entity reflection attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"registry.reflect.errors.total",
		metric.WithDescription("Total number of failed entity reflections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection error counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"registry.reflect.duration",
		metric.WithDescription("Duration of entity reflection in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection duration histogram: %w", err)
	}

	entitiesGauge, err := meter.Int64ObservableGauge(
		"registry.entities",
		metric.WithDescription("Number of entities reflected successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry entities gauge: %w", err)
	}

	lastSuccessGauge, err := meter.Int64ObservableGauge(
		"registry.reflect.last_success_unix",
		metric.WithDescription("Unix timestamp of the last successful reflection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection last success gauge: %w", err)
	}

	metrics := &ReflectionMetrics{
		reflectCounter: reflectCounter,
		errorCounter:   errorCounter,
		durationHist:   durationHist,
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			observer.ObserveInt64(entitiesGauge, metrics.entitiesLoaded.Load())
			if value := metrics.lastSuccessUnix.Load(); value > 0 {
				observer.ObserveInt64(lastSuccessGauge, value)
			}
			return nil
		},
		entitiesGauge,
		lastSuccessGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register reflection gauge callback: %w", err)
	}

	return metrics, nil
}

// RecordReflect records one reflection attempt for table.
func (m *ReflectionMetrics) RecordReflect(ctx context.Context, table string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("table", table),
		attribute.Bool("success", err == nil),
	}

	m.reflectCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("table", table)))
		return
	}

	m.entitiesLoaded.Add(1)
	m.lastSuccessUnix.Store(time.Now().Unix())
}

// RecordReset records that the registry was cleared.
func (m *ReflectionMetrics) RecordReset() {
	if m == nil {
		return
	}
	m.entitiesLoaded.Store(0)
}
