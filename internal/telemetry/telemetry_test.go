package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/italolelis/httpfetch/internal/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		301: "3xx",
		404: "4xx",
		503: "5xx",
		100: "unknown",
	}

	for code, want := range tests {
		assert.Equal(t, want, StatusClass(code), "code %d", code)
	}
}

func TestTelemetry_DisabledIsNoop(t *testing.T) {
	tel, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	tel.RecordDownload(ctx, "success", time.Second)
	tel.RecordBytes(ctx, 10)
	tel.RecordResponse(ctx, 404)
	tel.RecordAuthChallenge(ctx, "declined")
	tel.AddActiveDownloads(ctx, 1)

	called := false
	err = tel.InstrumentDBOperation(ctx, "insert", func(context.Context) error {
		called = true

		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestTelemetry_NilReceiver(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		tel.RecordDownload(context.Background(), "error", time.Millisecond)
		_, span := tel.Tracer().Start(context.Background(), "noop")
		span.End()
	})
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTelemetry_EnabledExposesMetrics(t *testing.T) {
	ctx := context.Background()

	tel, err := New(ctx, Config{Enabled: true, ServiceName: "httpfetch-test"})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	tel.RecordDownload(ctx, "success", 2*time.Second)
	tel.RecordBytes(ctx, 1024)
	tel.RecordResponse(ctx, 200)

	opErr := errors.New("boom")
	err = tel.InstrumentDBOperation(ctx, "record_transfer", func(context.Context) error { return opErr })
	assert.ErrorIs(t, err, opErr)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "downloads_total")
	assert.Contains(t, body, "download_bytes_total")
	assert.Contains(t, body, "db_operations_total")
}

func TestRequestID(t *testing.T) {
	var seen string

	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logctx.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestHTTPLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := HTTPLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, "/cancel", nil)
			req = req.WithContext(logctx.WithLogger(req.Context(), logger))
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Contains(t, buf.String(), "level="+tt.level)
			assert.Contains(t, buf.String(), "path=/cancel")
		})
	}
}

func TestHTTPMiddleware_RecordsRequests(t *testing.T) {
	ctx := context.Background()

	tel, err := New(ctx, Config{Enabled: true, ServiceName: "httpfetch-test"})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	h := NewHTTPMiddleware(tel).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, "ok", rec.Body.String())

	metrics := httptest.NewRecorder()
	tel.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
}
