package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/italolelis/httpfetch/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedTransport_ForwardsEventsAndRecordsMetrics(t *testing.T) {
	ctx := context.Background()

	tel, err := telemetry.New(ctx, telemetry.Config{Enabled: true, ServiceName: "transport-test"})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	tr := NewInstrumentedTransport(newTransportFor(t, srv), tel)
	rec := newRecorder()

	var sink bytes.Buffer
	_, err = tr.Get(ctx, "/payload", &sink, rec)
	require.NoError(t, err)
	require.NoError(t, rec.wait(t))

	assert.Equal(t, "payload", sink.String())
	assert.Equal(t, []header{{200, "OK"}}, rec.headers)

	metrics := httptest.NewRecorder()
	tel.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), "downloads_total")
	assert.Contains(t, metrics.Body.String(), "download_responses_total")
}

func TestInstrumentedTransport_GetError(t *testing.T) {
	tr := NewInstrumentedTransport(NewHTTPTransport(), &telemetry.Telemetry{})

	_, err := tr.Get(context.Background(), "/", &bytes.Buffer{}, newRecorder())
	assert.ErrorIs(t, err, ErrNoHost)
}
