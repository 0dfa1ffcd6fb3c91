package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/teoh/bintangbuddy/internal/models"
)

// progressPrinter draws a single updating status line on a terminal stream
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	written bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Print has the signature of a service.ProgressCallback
func (p *progressPrinter) Print(pr models.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := "Fetching courts"
	if pr.Stage == models.StageSchedule {
		label = "Fetching schedules"
	}
	fmt.Fprintf(p.w, "\r%-20s %d/%d", label, pr.Done, pr.Total)
	p.written = true
}

// Done ends the status line
func (p *progressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.written {
		fmt.Fprintln(p.w)
		p.written = false
	}
}
