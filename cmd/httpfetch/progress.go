package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/httpfetch/internal/transfer"
)

// progressPrinter renders the transfer on a terminal: one line per status
// message and a progress line rewritten in place.
type progressPrinter struct {
	transfer.NopObserver

	mu      sync.Mutex
	w       io.Writer
	title   string
	inPlace bool
}

func newProgressPrinter(w io.Writer, title string) *progressPrinter {
	return &progressPrinter{w: w, title: title}
}

func (p *progressPrinter) StatusChanged(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.endLine()
	fmt.Fprintf(p.w, "%s: %s\n", p.title, text)
}

func (p *progressPrinter) ProgressChanged(read, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inPlace = true

	if total <= 0 {
		fmt.Fprintf(p.w, "\r%s", humanize.Bytes(uint64(read)))

		return
	}

	fmt.Fprintf(p.w, "\r%s / %s (%.0f%%)",
		humanize.Bytes(uint64(read)), humanize.Bytes(uint64(total)), float64(read)*100/float64(total))
}

func (p *progressPrinter) endLine() {
	if p.inPlace {
		fmt.Fprintln(p.w)
		p.inPlace = false
	}
}
