// Package transport defines the HTTP capability a transfer is driven by and a
// net/http implementation of it.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strconv"
)

// RequestID identifies one Get issued on a Transport.
type RequestID int64

var (
	// ErrAborted is reported to RequestFinished when Abort stopped the request.
	ErrAborted = errors.New("transport: request aborted")
	// ErrBusy is returned by Get while another request is in flight.
	ErrBusy = errors.New("transport: a request is already in flight")
	// ErrNoHost is returned by Get before SetHost was called.
	ErrNoHost = errors.New("transport: no host configured")
)

// Proxy is a single HTTP proxy with optional credentials. The zero value means
// no explicit proxy.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
}

// URL returns the proxy as an http URL, or nil when no host is set.
func (p Proxy) URL() *url.URL {
	if p.Host == "" {
		return nil
	}

	u := &url.URL{Scheme: "http", Host: p.Host}
	if p.Port > 0 {
		u.Host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}

	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}

	return u
}

// Credentials is the sink an authentication challenge is answered through.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no user name was provided.
func (c Credentials) IsZero() bool {
	return c.Username == ""
}

// Handler receives the events of a request. Events of one request are
// delivered serially from a single goroutine; RequestFinished is always the
// last one.
type Handler interface {
	HeaderReceived(id RequestID, statusCode int, reason string)
	Progress(id RequestID, read, total int64)
	RequestFinished(id RequestID, err error)
	// AuthenticationRequired blocks the request until it returns. Filling
	// sink makes the transport authenticate with those credentials; leaving
	// it empty lets the challenge response through as a regular header.
	AuthenticationRequired(ctx context.Context, id RequestID, host, realm string, sink *Credentials)
}

// Transport issues GET requests and reports their progress to a Handler.
type Transport interface {
	SetProxy(p Proxy)
	SetHost(host string, useTLS bool, port int)
	SetCredentials(username, password string)
	// Get starts streaming path into sink and returns immediately.
	Get(ctx context.Context, path string, sink io.Writer, h Handler) (RequestID, error)
	// Abort stops the in-flight request, if any.
	Abort()
}
