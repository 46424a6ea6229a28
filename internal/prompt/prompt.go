// Package prompt answers HTTP authentication challenges on behalf of a
// transfer.
package prompt

import (
	"context"
	"sync"

	"github.com/italolelis/httpfetch/internal/transport"
)

// Request is one authentication challenge waiting for an answer. Exactly one
// of Accept or Decline takes effect; later calls are ignored.
type Request struct {
	Host  string
	Realm string

	once  sync.Once
	reply chan answer
}

type answer struct {
	creds transport.Credentials
	ok    bool
}

// Description is the text shown to the user for this challenge.
func (r *Request) Description() string {
	return r.Realm + " at " + r.Host
}

// Accept answers the challenge with the given credentials.
func (r *Request) Accept(username, password string) {
	r.respond(answer{creds: transport.Credentials{Username: username, Password: password}, ok: true})
}

// Decline refuses to authenticate.
func (r *Request) Decline() {
	r.respond(answer{})
}

func (r *Request) respond(a answer) {
	r.once.Do(func() {
		r.reply <- a
	})
}

// Channel publishes each challenge on Requests and blocks until it is
// answered or the context is done.
type Channel struct {
	requests chan *Request
}

func NewChannel() *Channel {
	return &Channel{requests: make(chan *Request)}
}

// Requests returns the channel challenges are delivered on.
func (c *Channel) Requests() <-chan *Request {
	return c.requests
}

func (c *Channel) Prompt(ctx context.Context, host, realm string) (transport.Credentials, bool, error) {
	req := &Request{Host: host, Realm: realm, reply: make(chan answer, 1)}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return transport.Credentials{}, false, ctx.Err()
	}

	select {
	case a := <-req.reply:
		return a.creds, a.ok, nil
	case <-ctx.Done():
		return transport.Credentials{}, false, ctx.Err()
	}
}

// Static answers every challenge with the same credentials. The zero value
// declines.
type Static struct {
	Username string
	Password string
}

func (s Static) Prompt(context.Context, string, string) (transport.Credentials, bool, error) {
	if s.Username == "" {
		return transport.Credentials{}, false, nil
	}

	return transport.Credentials{Username: s.Username, Password: s.Password}, true, nil
}
