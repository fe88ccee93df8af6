// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// Relay converts interrupts into events for the interactive loop.
// While idle an interrupt writes a fresh prompt; while a foreground command
// runs it is only recorded and reported when the command returns.
type Relay struct {
	w      io.Writer
	prompt string

	mu      sync.Mutex
	busy    bool
	pending bool
	count   int
}

// NewRelay returns a relay that writes prompt reminders to w.
func NewRelay(w io.Writer, prompt string) *Relay {
	return &Relay{w: w, prompt: prompt}
}

// Run consumes sigCh until it is closed or ctx is done.
func (r *Relay) Run(ctx context.Context, sigCh <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			ctxlog.Debug(ctx, "signalbroker", "detail", "relaying signal", "signal", sig.String())
			r.Notify()
		}
	}
}

// Notify records one interrupt.
func (r *Relay) Notify() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++

	if r.busy {
		r.pending = true
		return
	}

	_, _ = io.WriteString(r.w, "\n"+r.prompt)
}

// Foreground runs fn as the foreground command and reports whether an
// interrupt arrived meanwhile.
func (r *Relay) Foreground(fn func()) bool {
	r.mu.Lock()
	r.busy = true
	r.pending = false
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	fn()

	r.mu.Lock()
	defer r.mu.Unlock()

	interrupted := r.pending
	r.pending = false

	return interrupted
}

// Count returns the number of interrupts seen.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}
