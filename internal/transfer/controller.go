package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/httpfetch/internal/logctx"
	"github.com/italolelis/httpfetch/internal/transport"
	"github.com/spf13/afero"
)

// DefaultFileName is used when StartDownload gets an empty destination name.
const DefaultFileName = "index.html"

const (
	statusReady       = "Please enter the URL of a file you want to download."
	statusDownloading = "Downloading %s."
	statusCancelled   = "Download cancelled."
	statusHTTPFailed  = "Download failed: %s."
	statusSaveFailed  = "Unable to save the file: %v."
	statusOpenFailed  = "Unable to save the file %s: %v."
	statusDownloaded  = "Downloaded to: %s."
)

// Prompter asks for credentials when a server requires authentication. ok is
// false when the user declined.
type Prompter interface {
	Prompt(ctx context.Context, host, realm string) (creds transport.Credentials, ok bool, err error)
}

// Controller drives one download at a time through a Transport into a
// destination file, and reports what happens to an Observer.
type Controller struct {
	transport transport.Transport
	fs        afero.Fs
	dir       string
	prompter  Prompter
	observer  Observer

	mu        sync.Mutex
	proxy     transport.Proxy
	current   *download
	status    string
	controls  bool
	prompting bool
}

type download struct {
	id         transport.RequestID
	url        string
	path       string
	state      State
	read       int64
	total      int64
	aborted    bool
	err        error
	dest       *destination
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
	logger     *slog.Logger
}

type Option func(*Controller)

// WithFs sets the filesystem destination files are created on.
func WithFs(fs afero.Fs) Option {
	return func(c *Controller) {
		c.fs = fs
	}
}

// WithDownloadDir sets the directory relative destination names are resolved against.
func WithDownloadDir(dir string) Option {
	return func(c *Controller) {
		c.dir = dir
	}
}

// WithPrompter sets who answers authentication challenges. Without one,
// challenges are left unanswered.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) {
		c.prompter = p
	}
}

// WithObserver sets the receiver of status, progress and completion events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

func NewController(t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		fs:        afero.NewOsFs(),
		observer:  NopObserver{},
		status:    statusReady,
		controls:  true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ConfigureProxy sets the proxy used by every download started afterwards.
func (c *Controller) ConfigureProxy(host string, port int, username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.proxy = transport.Proxy{Host: host, Port: port, Username: username, Password: password}
}

// StartDownload downloads rawURL into destinationName, replacing any file
// already there. It returns once the request was issued; use Wait to block
// until the download ends.
func (c *Controller) StartDownload(ctx context.Context, rawURL, destinationName string) error {
	logger := logctx.LoggerFromContext(ctx)

	u, err := parseURL(rawURL)
	if err != nil {
		return err
	}

	var ev events
	defer func() { ev.flush(c.observer) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	// A cancelled or rejected request still owns its file until it reports
	// finished.
	if d := c.current; d != nil && (d.state == InProgress || d.dest != nil) {
		return ErrTransferActive
	}

	path := c.resolvePath(destinationName)
	logger = logger.With("url", u.Redacted(), "path", path)

	dest, err := createDestination(c.fs, path)
	if err != nil {
		openErr := &FileOpenError{Path: path, Err: err}

		c.current = &download{url: rawURL, path: path, state: Idle, err: openErr, logger: logger}
		c.setStatus(&ev, fmt.Sprintf(statusOpenFailed, path, err))

		logger.Error("failed to open destination file", "err", err)

		return openErr
	}

	c.transport.SetProxy(c.proxy)
	c.transport.SetHost(u.Hostname(), u.Scheme == "https", urlPort(u))

	password, _ := u.User.Password()
	c.transport.SetCredentials(u.User.Username(), password)

	d := &download{
		url:       rawURL,
		path:      path,
		state:     InProgress,
		dest:      dest,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		logger:    logger,
	}

	id, err := c.transport.Get(ctx, u.RequestURI(), dest, &handler{c: c})
	if err != nil {
		_ = dest.discard()

		c.current = &download{url: rawURL, path: path, state: Idle, err: &TransportError{Err: err}, logger: logger}
		c.setStatus(&ev, fmt.Sprintf(statusSaveFailed, err))

		logger.Error("failed to issue request", "err", err)

		return c.current.err
	}

	d.id = id
	c.current = d

	c.setStatus(&ev, fmt.Sprintf(statusDownloading, filepath.Base(path)))
	c.setControls(&ev, false)

	logger.Info("download started", "request_id", id)

	return nil
}

// CancelDownload aborts the download in progress. The partial file is removed
// once the transport reports the request finished. Calling it when nothing is
// in progress has no effect.
func (c *Controller) CancelDownload() {
	var ev events
	defer func() { ev.flush(c.observer) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.current
	if d == nil || d.state != InProgress {
		return
	}

	d.aborted = true
	d.dest.refuse()
	c.transport.Abort()

	d.state = Cancelled
	d.err = ErrCancelled

	c.setStatus(&ev, statusCancelled)
	c.setControls(&ev, true)

	d.logger.Info("download cancelled", "downloaded", humanize.Bytes(uint64(d.read)))
}

// Wait blocks until the current download reaches a terminal state and returns
// its snapshot with nil, ErrCancelled, *HTTPStatusError or *TransportError.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	d := c.current
	c.mu.Unlock()

	if d == nil {
		return c.Snapshot(), ErrNoTransfer
	}

	if d.done != nil {
		select {
		case <-d.done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked(d), d.err
}

// Snapshot returns the state of the current or last download.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked(c.current)
}

// State returns the state of the current or last download.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Idle
	}

	return c.current.state
}

// Status returns the latest human-readable status message.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// ControlsEnabled reports whether a new download may be requested.
func (c *Controller) ControlsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.controls
}

func (c *Controller) snapshotLocked(d *download) Snapshot {
	s := Snapshot{State: Idle, Status: c.status}
	if d == nil {
		return s
	}

	s.URL = d.url
	s.Path = d.path
	s.State = d.state
	s.BytesRead = d.read
	s.BytesTotal = d.total
	s.StartedAt = d.startedAt
	s.FinishedAt = d.finishedAt

	if d.err != nil {
		s.Error = d.err.Error()
	}

	return s
}

func (c *Controller) setStatus(ev *events, text string) {
	c.status = text
	ev.status(text)
}

func (c *Controller) setControls(ev *events, enabled bool) {
	if c.controls == enabled {
		return
	}

	c.controls = enabled
	ev.controls(enabled)
}

// active returns the in-flight download the event belongs to, or nil.
func (c *Controller) active(id transport.RequestID) *download {
	d := c.current
	if d == nil || d.id != id || d.dest == nil {
		return nil
	}

	return d
}

func (c *Controller) resolvePath(name string) string {
	if name == "" {
		name = DefaultFileName
	}

	if filepath.IsAbs(name) || c.dir == "" {
		return name
	}

	return filepath.Join(c.dir, name)
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: "cannot be parsed", Err: err}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	}

	if u.Hostname() == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}

	return u, nil
}

func urlPort(u *url.URL) int {
	port, _ := strconv.Atoi(u.Port())

	return port
}
