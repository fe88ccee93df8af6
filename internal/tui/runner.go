// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// sender is the part of tea.Program the forwarder needs.
type sender interface {
	Send(msg tea.Msg)
}

// Forwarder turns server reads into program messages.
type Forwarder struct {
	program sender
	closed  bool
	mutex   sync.RWMutex
}

// NewForwarder creates a forwarder sending to program.
func NewForwarder(program sender) *Forwarder {
	return &Forwarder{program: program}
}

// Report sends msg unless the forwarder was closed.
func (f *Forwarder) Report(msg tea.Msg) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	if f.closed || f.program == nil {
		return
	}

	f.program.Send(msg)
}

// Close stops any further messages.
func (f *Forwarder) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.closed = true
}

// Pump reads chunks of up to size bytes from r until it fails. Each chunk is
// one IncomingMsg; the terminating error becomes a DisconnectedMsg.
func (f *Forwarder) Pump(r io.Reader, size int) {
	if size <= 0 {
		size = 1024
	}

	buf := make([]byte, size)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			f.Report(IncomingMsg{Text: string(buf[:n])})
		}

		if err != nil {
			f.Report(DisconnectedMsg{Err: err})
			return
		}
	}
}

// Runner owns the connection and the bubbletea program.
type Runner struct {
	conn      net.Conn
	model     *Model
	program   *tea.Program
	forwarder *Forwarder
	chunk     int
}

// NewRunner creates a chat runner on an established connection.
func NewRunner(ctx context.Context, conn net.Conn, chunk int, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx, conn.RemoteAddr().String(), conn, chunk)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	return &Runner{
		conn:      conn,
		model:     model,
		program:   program,
		forwarder: NewForwarder(program),
		chunk:     chunk,
	}
}

// Run shows the chat until the user quits or ctx is cancelled. The
// connection is closed on return.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		r.forwarder.Pump(r.conn, r.chunk)
	}()

	_, err := r.program.Run()

	r.forwarder.Close()

	if cerr := r.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		ctxlog.Debug(ctx, "tui", "detail", "closing connection", "error", cerr)
	}

	wg.Wait()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}
