package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestInvalidURLError(t *testing.T) {
	cause := errors.New("missing protocol scheme")
	err := &InvalidURLError{URL: "example.test", Reason: "cannot be parsed", Err: cause}

	expected := `invalid download url "example.test": cannot be parsed`
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the parse error")
	}
}

func TestFileOpenError(t *testing.T) {
	err := &FileOpenError{Path: "/downloads/index.html", Err: fs.ErrPermission}

	expected := "unable to save the file /downloads/index.html: permission denied"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is should find fs.ErrPermission")
	}

	var target *FileOpenError
	if !errors.As(error(err), &target) {
		t.Fatal("errors.As should match *FileOpenError")
	}

	if target.Path != "/downloads/index.html" {
		t.Errorf("Path = %q, want /downloads/index.html", target.Path)
	}
}

func TestHTTPStatusError(t *testing.T) {
	tests := []struct {
		name string
		err  *HTTPStatusError
		want string
	}{
		{
			name: "not found",
			err:  &HTTPStatusError{StatusCode: 404, Reason: "Not Found"},
			want: "download failed (HTTP 404): Not Found",
		},
		{
			name: "server error",
			err:  &HTTPStatusError{StatusCode: 503, Reason: "Service Unavailable"},
			want: "download failed (HTTP 503): Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	wrapped := fmt.Errorf("download: %w", &TransportError{Err: cause})

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the transport cause through wrapping")
	}

	var target *TransportError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should match *TransportError")
	}

	expected := "transport error: connection reset by peer"
	if target.Error() != expected {
		t.Errorf("Error() = %q, want %q", target.Error(), expected)
	}
}
