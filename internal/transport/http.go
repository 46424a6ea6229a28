package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/italolelis/httpfetch/internal/logctx"
	"github.com/italolelis/httpfetch/internal/progress"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxAuthPrompts bounds how many times one request asks for credentials.
const maxAuthPrompts = 3

// HTTPTransport implements Transport on top of net/http. It runs at most one
// request at a time.
type HTTPTransport struct {
	base             *http.Transport
	client           *http.Client
	progressInterval int64

	mu     sync.Mutex
	scheme string
	host   string
	creds  Credentials
	nextID RequestID
	cancel context.CancelCauseFunc
}

type Option func(*HTTPTransport)

// WithProgressInterval sets how many bytes are read between Progress events.
func WithProgressInterval(n int64) Option {
	return func(t *HTTPTransport) {
		t.progressInterval = n
	}
}

// WithRoundTripper replaces the instrumented round tripper, mostly for tests.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *HTTPTransport) {
		t.client.Transport = rt
	}
}

func NewHTTPTransport(opts ...Option) *HTTPTransport {
	base := http.DefaultTransport.(*http.Transport).Clone()

	t := &HTTPTransport{
		base:             base,
		client:           &http.Client{Transport: otelhttp.NewTransport(base)},
		progressInterval: progress.DefaultInterval,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SetProxy routes subsequent requests through p. A zero Proxy falls back to
// the proxy settings of the environment.
func (t *HTTPTransport) SetProxy(p Proxy) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u := p.URL(); u != nil {
		t.base.Proxy = http.ProxyURL(u)
	} else {
		t.base.Proxy = http.ProxyFromEnvironment
	}

	t.base.CloseIdleConnections()
}

// SetHost selects the server relative paths are resolved against. A port of
// zero means the scheme's default port.
func (t *HTTPTransport) SetHost(host string, useTLS bool, port int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scheme = "http"
	if useTLS {
		t.scheme = "https"
	}

	t.host = host
	if port > 0 {
		t.host = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// SetCredentials sets the basic auth credentials sent with every request.
// An empty user name clears them.
func (t *HTTPTransport) SetCredentials(username, password string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.creds = Credentials{Username: username, Password: password}
}

func (t *HTTPTransport) Get(ctx context.Context, path string, sink io.Writer, h Handler) (RequestID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return 0, ErrBusy
	}

	if t.host == "" {
		return 0, ErrNoHost
	}

	target, err := t.resolve(path)
	if err != nil {
		return 0, err
	}

	t.nextID++
	id := t.nextID

	reqCtx, cancel := context.WithCancelCause(ctx)
	t.cancel = cancel

	go t.run(reqCtx, id, target, t.creds, sink, h)

	return id, nil
}

// Abort cancels the in-flight request. The request still ends with a
// RequestFinished event carrying ErrAborted.
func (t *HTTPTransport) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel(ErrAborted)
	}
}

func (t *HTTPTransport) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}

	base := &url.URL{Scheme: t.scheme, Host: t.host, Path: "/"}
	target := base.ResolveReference(ref)
	target.User = nil

	return target.String(), nil
}

func (t *HTTPTransport) run(ctx context.Context, id RequestID, target string, creds Credentials, sink io.Writer, h Handler) {
	err := t.do(ctx, id, target, creds, sink, h)

	t.mu.Lock()
	t.cancel(nil)
	t.cancel = nil
	t.mu.Unlock()

	h.RequestFinished(id, err)
}

func (t *HTTPTransport) do(ctx context.Context, id RequestID, target string, creds Credentials, sink io.Writer, h Handler) error {
	logger := logctx.LoggerFromContext(ctx).With("request_id", id)

	var resp *http.Response

	for prompts := 0; ; prompts++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		if !creds.IsZero() {
			req.SetBasicAuth(creds.Username, creds.Password)
		}

		resp, err = t.client.Do(req)
		if err != nil {
			return requestError(ctx, err)
		}

		if resp.StatusCode != http.StatusUnauthorized || prompts >= maxAuthPrompts {
			break
		}

		realm, ok := basicRealm(resp.Header.Values("WWW-Authenticate"))
		if !ok {
			break
		}

		logger.Debug("authentication required", "host", req.URL.Hostname(), "realm", realm)

		var answer Credentials
		h.AuthenticationRequired(ctx, id, req.URL.Hostname(), realm, &answer)

		if err := context.Cause(ctx); err != nil {
			resp.Body.Close()

			return err
		}

		if answer.IsZero() {
			break
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		creds = answer
	}

	defer resp.Body.Close()

	h.HeaderReceived(id, resp.StatusCode, reasonPhrase(resp))

	if err := context.Cause(ctx); err != nil {
		return err
	}

	pr := progress.NewReader(resp.Body, resp.ContentLength, t.progressInterval, func(read, total int64) {
		h.Progress(id, read, total)
	})

	if _, err := io.Copy(sink, pr); err != nil {
		return requestError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	return nil
}

// requestError prefers the abort cause over the error it produced downstream.
func requestError(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}

	return err
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	return reason
}

// basicRealm returns the realm of the first Basic challenge found.
func basicRealm(challenges []string) (string, bool) {
	for _, c := range challenges {
		scheme, params, _ := strings.Cut(strings.TrimSpace(c), " ")
		if !strings.EqualFold(scheme, "basic") {
			continue
		}

		for _, param := range strings.Split(params, ",") {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if found && strings.EqualFold(key, "realm") {
				return strings.Trim(value, `"`), true
			}
		}

		return "", true
	}

	return "", false
}

var _ Transport = (*HTTPTransport)(nil)

// IsAborted reports whether err is the result of Abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
