package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the outcome of a transfer stopped by CancelDownload. It
	// marks a terminal state rather than a failure.
	ErrCancelled = errors.New("download cancelled")
	// ErrTransferActive is returned by StartDownload while a transfer is in
	// progress or has not finished releasing its file.
	ErrTransferActive = errors.New("a download is already in progress")
	// ErrNoTransfer is returned by Wait before any download was started.
	ErrNoTransfer = errors.New("no download started")
)

// InvalidURLError is returned when the download URL cannot be used.
type InvalidURLError struct {
	URL    string // The rejected URL
	Reason string // Human-readable explanation
	Err    error  // Underlying parse error, if any
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid download url %q: %s", e.URL, e.Reason)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

// FileOpenError means the destination file could not be created. The
// transfer never started.
type FileOpenError struct {
	Path string // Resolved destination path
	Err  error  // Underlying filesystem error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("unable to save the file %s: %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a response other than 200 OK.
type HTTPStatusError struct {
	StatusCode int    // HTTP status code
	Reason     string // Reason phrase sent by the server
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("download failed (HTTP %d): %s", e.StatusCode, e.Reason)
}

// TransportError is a failure reported by the transport when the request finished.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
