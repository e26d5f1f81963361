package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func testConfig() Config {
	return Config{ServiceName: "daogen-test", ServiceVersion: "1.0.0", Environment: "test"}
}

func TestMeterProviderWritesRecordedMetrics(t *testing.T) {
	mp, err := InitMeterProvider(testConfig())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defer func() { _ = mp.Shutdown(context.Background(), logger) }()

	daoMetrics, reflectionMetrics, err := InitMetrics(logger)
	require.NoError(t, err)
	require.NotNil(t, daoMetrics)
	require.NotNil(t, reflectionMetrics)

	ctx := context.Background()
	daoMetrics.RecordOperation(ctx, "users", "find", 3*time.Millisecond, nil)
	daoMetrics.RecordOperation(ctx, "users", "update", time.Millisecond, errors.New("boom"))
	daoMetrics.RecordMaterialization(ctx, "users", 4, 2, 2, 2)
	reflectionMetrics.RecordReflect(ctx, "users", time.Millisecond, nil)

	var buf bytes.Buffer
	require.NoError(t, mp.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "dao_operations_total")
	assert.Contains(t, out, "dao_errors_total")
	assert.Contains(t, out, "dao_identity_cache_hits")
	assert.Contains(t, out, `table="users"`)
	assert.Contains(t, out, "daogen-test")
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var daoMetrics *DAOMetrics
	var reflectionMetrics *ReflectionMetrics
	assert.NotPanics(t, func() {
		daoMetrics.RecordOperation(context.Background(), "t", "find", 0, nil)
		daoMetrics.RecordMaterialization(context.Background(), "t", 1, 1, 0, 1)
		reflectionMetrics.RecordReflect(context.Background(), "t", 0, nil)
		reflectionMetrics.RecordReset()
	})
}

func TestParseOTLPProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    otlpProtocol
		wantErr bool
	}{
		{in: "", want: otlpProtocolGRPC},
		{in: "GRPC", want: otlpProtocolGRPC},
		{in: "http", want: otlpProtocolHTTP},
		{in: "http/protobuf", want: otlpProtocolHTTP},
		{in: "thrift", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOTLPProtocol(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSpanExporterRejectsBadTLS(t *testing.T) {
	_, err := newSpanExporter(context.Background(), OTLPExporterConfig{
		Endpoint:    "localhost:4317",
		TLSCertFile: "/nonexistent/ca.pem",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read OTLP TLS CA file")
}

func TestBuildTLSConfig_FileNotFound(t *testing.T) {
	// Missing CA file should surface a clear error.
	_, err := buildTLSConfig(OTLPExporterConfig{
		TLSCertFile: "/nonexistent/ca.pem",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read OTLP TLS CA file")
}

func TestBuildTLSConfig_InvalidCertFormat(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ca.pem"

	// Write a non-PEM payload to trigger parse failure.
	require.NoError(t, os.WriteFile(path, []byte("not-a-cert"), 0600))

	_, err := buildTLSConfig(OTLPExporterConfig{
		TLSCertFile: path,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse OTLP TLS CA file")
}

func TestBuildTLSConfig_MissingClientKeyPair(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/client.crt"

	// Only set the cert path to ensure missing key is rejected.
	require.NoError(t, os.WriteFile(path, []byte("not-a-cert"), 0600))

	_, err := buildTLSConfig(OTLPExporterConfig{
		TLSClientCertFile: path,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTLP TLS client cert and key must both be set")
}

func TestTraceSamplerForRatio_Boundaries(t *testing.T) {
	never := traceSamplerForRatio(0)
	always := traceSamplerForRatio(1)

	decisionNever := never.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{1},
		Name:          "test",
	}).Decision
	assert.Equal(t, sdktrace.Drop, decisionNever)

	decisionAlways := always.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{2},
		Name:          "test",
	}).Decision
	assert.Equal(t, sdktrace.RecordAndSample, decisionAlways)
}

func TestTraceSamplerForRatio_ParentAwareMidRange(t *testing.T) {
	sampler := traceSamplerForRatio(0.5)

	parentSampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{3},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
	decisionSampledParent := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parentSampled,
		TraceID:       trace.TraceID{4},
		Name:          "child",
	}).Decision
	assert.Equal(t, sdktrace.RecordAndSample, decisionSampledParent)

	parentNotSampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{5},
		SpanID:  trace.SpanID{2},
		Remote:  true,
	}))
	decisionUnsampledParent := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parentNotSampled,
		TraceID:       trace.TraceID{6},
		Name:          "child",
	}).Decision
	assert.Equal(t, sdktrace.Drop, decisionUnsampledParent)
}
