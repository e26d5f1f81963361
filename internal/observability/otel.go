// Package observability wires OpenTelemetry for the DAO: Prometheus-backed
// metrics that can be dumped as text, OTLP tracing, and OTLP log export.
package observability

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

const shutdownTimeout = 5 * time.Second

// Config describes the process emitting telemetry and where OTLP data goes.
type Config struct {
	ServiceName      string
	ServiceVersion   string
	Environment      string
	TraceSampleRatio float64
	OTLP             OTLPExporterConfig
}

// OTLPExporterConfig holds the exporter settings shared by traces and logs.
type OTLPExporterConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol"`
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Compression       string            `mapstructure:"compression"`
	Retry             bool              `mapstructure:"retry"`
}

func newResource(cfg Config) (*resource.Resource, error) {
	// No schema URL, so merging with the default resource cannot conflict.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// MeterProvider is the global meter provider backed by a private Prometheus
// registry.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry
}

// InitMeterProvider installs a Prometheus-exporting meter provider as the
// global one.
func InitMeterProvider(cfg Config) (*MeterProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	return &MeterProvider{provider: provider, registry: registry}, nil
}

// WriteText writes the current metrics in the Prometheus text format.
func (mp *MeterProvider) WriteText(w io.Writer) error {
	families, err := mp.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// Shutdown flushes and stops the meter provider.
func (mp *MeterProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	return shutdown(ctx, logger, "meter", mp.provider.Shutdown)
}

// TracerProvider is the global tracer provider exporting over OTLP.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// InitTracerProvider installs an OTLP tracer provider as the global one.
func InitTracerProvider(ctx context.Context, cfg Config) (*TracerProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newSpanExporter(ctx, cfg.OTLP)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(traceSamplerForRatio(cfg.TraceSampleRatio)),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	return shutdown(ctx, logger, "tracer", tp.provider.Shutdown)
}

// traceSamplerForRatio samples nothing at or below 0, everything at or above
// 1, and otherwise follows the parent with a ratio-based root decision.
func traceSamplerForRatio(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.NeverSample()
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// LoggerProvider exports log records over OTLP. It is not installed
// globally; the logging package bridges slog onto it.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
}

// InitLoggerProvider builds an OTLP logger provider.
func InitLoggerProvider(ctx context.Context, cfg Config) (*LoggerProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newLogExporter(ctx, cfg.OTLP)
	if err != nil {
		return nil, err
	}
	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	return &LoggerProvider{provider: provider}, nil
}

// Provider returns the SDK provider for the slog bridge.
func (lp *LoggerProvider) Provider() *sdklog.LoggerProvider {
	return lp.provider
}

// Shutdown flushes and stops the logger provider.
func (lp *LoggerProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	return shutdown(ctx, logger, "logger", lp.provider.Shutdown)
}

func shutdown(ctx context.Context, logger *slog.Logger, kind string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("failed to shutdown "+kind+" provider", slog.String("error", err.Error()))
		return err
	}
	logger.Debug(kind + " provider shutdown")
	return nil
}

type otlpProtocol string

const (
	otlpProtocolGRPC otlpProtocol = "grpc"
	otlpProtocolHTTP otlpProtocol = "http/protobuf"
)

func parseOTLPProtocol(value string) (otlpProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(otlpProtocolGRPC):
		return otlpProtocolGRPC, nil
	case "http", string(otlpProtocolHTTP):
		return otlpProtocolHTTP, nil
	default:
		return "", fmt.Errorf("unsupported OTLP protocol %q (use grpc or http/protobuf)", value)
	}
}

func buildTLSConfig(cfg OTLPExporterConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.TLSCertFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read OTLP TLS CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse OTLP TLS CA file")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSClientCertFile != "" || cfg.TLSClientKeyFile != "" {
		if cfg.TLSClientCertFile == "" || cfg.TLSClientKeyFile == "" {
			return nil, errors.New("OTLP TLS client cert and key must both be set")
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load OTLP TLS client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func isHTTPEndpointURL(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

// retryBackoff is shared by every exporter that has retries enabled.
var retryBackoff = struct {
	initial, max, elapsed time.Duration
}{time.Second, 5 * time.Second, 30 * time.Second}

func newSpanExporter(ctx context.Context, cfg OTLPExporterConfig) (sdktrace.SpanExporter, error) {
	protocol, err := parseOTLPProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if !cfg.Insecure {
		if tlsConfig, err = buildTLSConfig(cfg); err != nil {
			return nil, err
		}
	}

	var exporter sdktrace.SpanExporter
	if protocol == otlpProtocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if isHTTPEndpointURL(cfg.Endpoint) {
			opts = []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
		}
		if tlsConfig == nil {
			opts = append(opts, otlptracehttp.WithInsecure())
		} else {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsConfig))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		}
		if cfg.Retry {
			opts = append(opts, otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
				Enabled: true, InitialInterval: retryBackoff.initial,
				MaxInterval: retryBackoff.max, MaxElapsedTime: retryBackoff.elapsed,
			}))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	} else {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if tlsConfig == nil {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlptracegrpc.WithCompressor("gzip"))
		}
		if cfg.Retry {
			opts = append(opts, otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
				Enabled: true, InitialInterval: retryBackoff.initial,
				MaxInterval: retryBackoff.max, MaxElapsedTime: retryBackoff.elapsed,
			}))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func newLogExporter(ctx context.Context, cfg OTLPExporterConfig) (sdklog.Exporter, error) {
	protocol, err := parseOTLPProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if !cfg.Insecure {
		if tlsConfig, err = buildTLSConfig(cfg); err != nil {
			return nil, err
		}
	}

	var exporter sdklog.Exporter
	if protocol == otlpProtocolHTTP {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if isHTTPEndpointURL(cfg.Endpoint) {
			opts = []otlploghttp.Option{otlploghttp.WithEndpointURL(cfg.Endpoint)}
		}
		if tlsConfig == nil {
			opts = append(opts, otlploghttp.WithInsecure())
		} else {
			opts = append(opts, otlploghttp.WithTLSClientConfig(tlsConfig))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlploghttp.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlploghttp.WithCompression(otlploghttp.GzipCompression))
		}
		if cfg.Retry {
			opts = append(opts, otlploghttp.WithRetry(otlploghttp.RetryConfig{
				Enabled: true, InitialInterval: retryBackoff.initial,
				MaxInterval: retryBackoff.max, MaxElapsedTime: retryBackoff.elapsed,
			}))
		}
		exporter, err = otlploghttp.New(ctx, opts...)
	} else {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
		if tlsConfig == nil {
			opts = append(opts, otlploggrpc.WithInsecure())
		} else {
			opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlploggrpc.WithTimeout(cfg.Timeout))
		}
		if cfg.Compression == "gzip" {
			opts = append(opts, otlploggrpc.WithCompressor("gzip"))
		}
		if cfg.Retry {
			opts = append(opts, otlploggrpc.WithRetry(otlploggrpc.RetryConfig{
				Enabled: true, InitialInterval: retryBackoff.initial,
				MaxInterval: retryBackoff.max, MaxElapsedTime: retryBackoff.elapsed,
			}))
		}
		exporter, err = otlploggrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return exporter, nil
}
