package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/italolelis/httpfetch/internal/transport"
)

// Terminal asks for credentials on a line-oriented terminal. An empty user
// name declines the challenge.
type Terminal struct {
	out io.Writer

	mu     sync.Mutex
	lines  chan string
	errs   chan error
	reader *bufio.Scanner
	start  sync.Once
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		out:    out,
		lines:  make(chan string),
		errs:   make(chan error, 1),
		reader: bufio.NewScanner(in),
	}
}

func (t *Terminal) Prompt(ctx context.Context, host, realm string) (transport.Credentials, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.start.Do(func() { go t.scan() })

	fmt.Fprintf(t.out, "Authentication required: %s at %s\n", realm, host)
	fmt.Fprint(t.out, "Username: ")

	username, err := t.readLine(ctx)
	if err != nil {
		return transport.Credentials{}, false, err
	}

	if username == "" {
		return transport.Credentials{}, false, nil
	}

	fmt.Fprint(t.out, "Password: ")

	password, err := t.readLine(ctx)
	if err != nil {
		return transport.Credentials{}, false, err
	}

	return transport.Credentials{Username: username, Password: password}, true, nil
}

// scan feeds input lines to readLine. It outlives a cancelled prompt so no
// input is lost between prompts.
func (t *Terminal) scan() {
	for t.reader.Scan() {
		t.lines <- strings.TrimRight(t.reader.Text(), "\r")
	}

	err := t.reader.Err()
	if err == nil {
		err = io.EOF
	}

	t.errs <- err
	close(t.lines)
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", fmt.Errorf("failed to read credentials: %w", io.ErrUnexpectedEOF)
		}

		return line, nil
	case err := <-t.errs:
		return "", fmt.Errorf("failed to read credentials: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
