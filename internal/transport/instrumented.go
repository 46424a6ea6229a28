package transport

import (
	"context"
	"io"
	"time"

	"github.com/italolelis/httpfetch/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedTransport wraps a Transport with a span and metrics per request.
type InstrumentedTransport struct {
	Transport

	telemetry *telemetry.Telemetry
}

// NewInstrumentedTransport creates a new instrumented transport.
func NewInstrumentedTransport(next Transport, tel *telemetry.Telemetry) *InstrumentedTransport {
	return &InstrumentedTransport{Transport: next, telemetry: tel}
}

// Get starts the request on the wrapped transport inside a "download" span that
// ends with RequestFinished.
func (t *InstrumentedTransport) Get(ctx context.Context, path string, sink io.Writer, h Handler) (RequestID, error) {
	ctx, span := t.telemetry.Tracer().Start(ctx, "download")

	ih := &instrumentedHandler{
		next:      h,
		telemetry: t.telemetry,
		ctx:       ctx,
		span:      span,
		start:     time.Now(),
	}

	t.telemetry.AddActiveDownloads(ctx, 1)

	id, err := t.Transport.Get(ctx, path, sink, ih)
	if err != nil {
		t.telemetry.AddActiveDownloads(ctx, -1)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		return id, err
	}

	return id, nil
}

type instrumentedHandler struct {
	next      Handler
	telemetry *telemetry.Telemetry
	ctx       context.Context
	span      trace.Span
	start     time.Time
	read      int64
}

func (h *instrumentedHandler) HeaderReceived(id RequestID, statusCode int, reason string) {
	h.telemetry.RecordResponse(h.ctx, statusCode)
	h.span.SetAttributes(attribute.Int("http.status_code", statusCode))

	h.next.HeaderReceived(id, statusCode, reason)
}

func (h *instrumentedHandler) Progress(id RequestID, read, total int64) {
	if read > h.read {
		h.telemetry.RecordBytes(h.ctx, read-h.read)
		h.read = read
	}

	h.next.Progress(id, read, total)
}

func (h *instrumentedHandler) AuthenticationRequired(ctx context.Context, id RequestID, host, realm string, sink *Credentials) {
	h.span.AddEvent("authentication_required")

	h.next.AuthenticationRequired(ctx, id, host, realm, sink)

	outcome := "answered"
	if sink.IsZero() {
		outcome = "declined"
	}

	h.telemetry.RecordAuthChallenge(h.ctx, outcome)
}

func (h *instrumentedHandler) RequestFinished(id RequestID, err error) {
	status := "success"

	switch {
	case IsAborted(err):
		status = "aborted"
	case err != nil:
		status = "error"

		h.span.SetStatus(codes.Error, err.Error())
	}

	h.span.SetAttributes(attribute.String("status", status))
	h.span.End()

	h.telemetry.AddActiveDownloads(h.ctx, -1)
	h.telemetry.RecordDownload(h.ctx, status, time.Since(h.start))

	h.next.RequestFinished(id, err)
}
