package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"licensegate/internal/infrastructure"
)

func newTestHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), includeStack)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleErrorMapsAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewValidationErrors([]ValidationError{{Field: "key", Message: "key is required"}}), http.StatusBadRequest, TypeValidation},
		{"bad request", InvalidRequestWithError(fmt.Errorf("unexpected EOF")), http.StatusBadRequest, TypeBadRequest},
		{"conflict", ErrLicenseExists, http.StatusConflict, TypeConflict},
		{"wrapped", fmt.Errorf("adding: %w", PayloadTooLarge(1024)), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"plain", fmt.Errorf("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	h := newTestHandler(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/add", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/add", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestHandleErrorMarksSpanFailed(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newTestHandler(false)
	for _, fail := range []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, r *http.Request) { h.HandleError(w, r, fmt.Errorf("store offline")) },
		func(w http.ResponseWriter, r *http.Request) { h.HandlePanic(w, r, "boom") },
	} {
		ctx, span := tp.Tracer("test").Start(context.Background(), "request")
		fail(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/validate", nil).WithContext(ctx))
		span.End()
	}

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "store offline", ended[0].Status().Description)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "panic: boom", ended[1].Status().Description)
	for _, s := range ended {
		require.Len(t, s.Events(), 1)
		assert.Equal(t, "exception", s.Events()[0].Name)
	}
}

func TestPayloadTooLarge(t *testing.T) {
	err := PayloadTooLarge(2048)
	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, "request body exceeds 2048 bytes", err.Message)
	assert.Equal(t, map[string]int64{"max_size": 2048}, err.Details)
}

func TestHandleErrorPlainErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret path /etc/x"))

	body := decodeProblem(t, rec)
	assert.NotContains(t, body["detail"], "/etc/x")
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestHandlePanic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(true).HandlePanic(rec, httptest.NewRequest(http.MethodPost, "/validate", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "boom", body["message"])
	assert.Equal(t, TypeInternal, body["type"])
	assert.Contains(t, body, "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler(false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/validate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "", "").
		WithExtension("status", 999).
		WithExtension("error_code", CodeLicenseExists)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.EqualValues(t, http.StatusConflict, body["status"])
	assert.Equal(t, CodeLicenseExists, body["error_code"])
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{{Field: "key", Message: "is required"}})
	assert.Equal(t, "is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	assert.Equal(t, "Request validation failed", NewValidationErrors(nil).Message)
}
