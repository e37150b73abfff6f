package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "licensegate-test",
		ServiceVersion: "test",
		TraceExporter:  "none",
		EnableMetrics:  true,
	}, discard())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestPrometheusEndpointServesPrivateRegistry(t *testing.T) {
	// Two instances in one process must not collide on registration.
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(&OTelConfig{
			ServiceName:   "licensegate-test",
			TraceExporter: "none",
			EnableMetrics: true,
		}, discard())
		require.NoError(t, err)

		metrics, err := CreateHTTPMetrics(providers.Meter)
		require.NoError(t, err)
		metrics.RequestsTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("route", "/validate")))

		rec := httptest.NewRecorder()
		providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "http_requests_total")
		assert.Contains(t, rec.Body.String(), "go_goroutines")

		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestOTelMetricsDisabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{TraceExporter: "none"}, discard())
	require.NoError(t, err)

	assert.Nil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.MeterProvider)
	require.NotNil(t, providers.Meter)

	_, err = CreateHTTPMetrics(providers.Meter)
	assert.NoError(t, err)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestStdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "licensegate-test",
		TraceExporter: "stdout",
		TraceWriter:   &buf,
	}, discard())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "test-operation")
}

func TestUnsupportedTraceExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin"}, discard())
	assert.Error(t, err)
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
