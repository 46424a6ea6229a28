package transfer

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/httpfetch/internal/transport"
)

// handler receives the transport events of the Controller's requests.
type handler struct {
	c *Controller
}

func (h *handler) HeaderReceived(id transport.RequestID, statusCode int, reason string) {
	c := h.c

	var ev events
	defer func() { ev.flush(c.observer) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.active(id)
	if d == nil || d.aborted {
		return
	}

	if statusCode == http.StatusOK {
		d.logger.Debug("response header received", "status", statusCode)

		return
	}

	d.aborted = true
	d.dest.refuse()
	c.transport.Abort()

	d.state = Failed
	d.err = &HTTPStatusError{StatusCode: statusCode, Reason: reason}

	c.setStatus(&ev, fmt.Sprintf(statusHTTPFailed, reason))
	c.setControls(&ev, true)

	d.logger.Warn("download rejected by server", "status", statusCode, "reason", reason)
}

func (h *handler) Progress(id transport.RequestID, read, total int64) {
	c := h.c

	var ev events
	defer func() { ev.flush(c.observer) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.active(id)
	if d == nil || d.aborted {
		return
	}

	if read > d.read {
		d.read = read
	}

	if total > 0 {
		d.total = total
	}

	ev.progress(d.read, d.total)

	if d.total > 0 {
		d.logger.Debug("download progress",
			"downloaded", humanize.Bytes(uint64(d.read)),
			"total", humanize.Bytes(uint64(d.total)),
			"percent", humanize.FtoaWithDigits(float64(d.read)*100/float64(d.total), 2))
	} else {
		d.logger.Debug("download progress", "downloaded", humanize.Bytes(uint64(d.read)))
	}
}

func (h *handler) RequestFinished(id transport.RequestID, err error) {
	c := h.c

	var ev events
	defer func() { ev.flush(c.observer) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.active(id)
	if d == nil {
		return
	}

	switch {
	case d.aborted:
		if derr := d.dest.discard(); derr != nil {
			d.logger.Error("failed to remove partial file", "err", derr)
		}

		if d.state != Failed {
			d.state = Cancelled
			d.err = ErrCancelled
		}
	case err != nil:
		h.fail(&ev, d, err)
	default:
		if kerr := d.dest.keep(); kerr != nil {
			h.fail(&ev, d, kerr)

			break
		}

		d.state = Succeeded
		c.setStatus(&ev, fmt.Sprintf(statusDownloaded, filepath.Base(d.path)))
	}

	d.dest = nil
	d.finishedAt = time.Now()

	c.setControls(&ev, true)

	snap := c.snapshotLocked(d)
	if d.state == Succeeded {
		ev.finished(snap)

		d.logger.Info("download finished",
			"size", humanize.Bytes(uint64(d.read)),
			"duration", d.finishedAt.Sub(d.startedAt).String())
	} else {
		ev.failed(snap, d.err)

		d.logger.Info("download ended", "state", d.state.String(), "err", d.err)
	}

	close(d.done)
}

// fail discards the destination after a transport error.
func (h *handler) fail(ev *events, d *download, err error) {
	if derr := d.dest.discard(); derr != nil {
		d.logger.Error("failed to remove partial file", "err", derr)
	}

	d.state = Failed
	d.err = &TransportError{Err: err}

	h.c.setStatus(ev, fmt.Sprintf(statusSaveFailed, err))

	d.logger.Error("download failed", "err", err)
}

// AuthenticationRequired forwards the challenge to the Prompter without
// holding the lock, so CancelDownload can interrupt the prompt through ctx.
// Only one prompt runs at a time.
func (h *handler) AuthenticationRequired(ctx context.Context, id transport.RequestID, host, realm string, sink *transport.Credentials) {
	c := h.c

	c.mu.Lock()

	d := c.active(id)
	if d == nil || d.aborted || c.prompter == nil || c.prompting {
		c.mu.Unlock()

		return
	}

	c.prompting = true
	logger := d.logger
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.prompting = false
		c.mu.Unlock()
	}()

	logger.Info("authentication required", "host", host, "realm", realm)

	creds, ok, err := c.prompter.Prompt(ctx, host, realm)
	if err != nil {
		logger.Warn("authentication prompt failed", "err", err)

		return
	}

	if ok {
		*sink = creds
	}
}
