// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobs tracks background processes started by the shell.
//
// Entries are added when a single stage command is launched with a trailing '&'
// and are removed by Reap, which the shell calls once before every prompt.
// Reap polls each process without blocking; finished entries produce one
// completion notice and are compacted away, survivors keep their order.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"golang.org/x/sys/unix"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 128

var (
	// ErrTableFull is returned by Add when every slot is taken.
	ErrTableFull = errors.New("too many background processes")
	// ErrStatusCheck wraps failures of the non-blocking status check.
	ErrStatusCheck = errors.New("failed to check background process status")
)

// StatusFunc reports without blocking whether pid has exited.
type StatusFunc func(pid int) (exited bool, err error)

// Job is a read-only view of a tracked process.
type Job struct {
	Slot    int    `json:"slot"`
	Pid     int    `json:"pid"`
	Command string `json:"command"`
}

// Snapshot is a frozen job listing, used where the live table is not
// reachable such as inside a pipeline stage process.
type Snapshot []Job

// Active returns the snapshot itself.
func (s Snapshot) Active() []Job {
	return s
}

type entry struct {
	proc    *os.Process
	command string
	alive   bool
}

// Table is the background job table.
type Table struct {
	mu       sync.Mutex
	entries  []*entry
	capacity int
	status   StatusFunc
}

// Option configures a Table.
type Option func(*Table)

// WithStatusFunc replaces the wait4 based status check.
func WithStatusFunc(fn StatusFunc) Option {
	return func(t *Table) {
		t.status = fn
	}
}

// New creates a table holding at most capacity jobs.
func New(capacity int, opts ...Option) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	t := &Table{
		entries:  make([]*entry, 0, capacity),
		capacity: capacity,
		status:   Wait4Status,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Add records proc and returns its 1-based slot.
func (t *Table) Add(proc *os.Process, command string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.capacity {
		return 0, ErrTableFull
	}

	t.entries = append(t.entries, &entry{proc: proc, command: command, alive: true})

	return len(t.entries), nil
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Capacity returns the maximum number of tracked jobs.
func (t *Table) Capacity() int {
	return t.capacity
}

// Active returns a snapshot of the tracked jobs in slot order.
func (t *Table) Active() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Job, 0, len(t.entries))
	for i, e := range t.entries {
		out = append(out, Job{Slot: i + 1, Pid: e.proc.Pid, Command: e.command})
	}

	return out
}

// Reap checks every live job, writes one notice to w for each that finished
// and compacts the table. Status errors are reported on errw and the job is
// treated as gone.
func (t *Table) Reap(ctx context.Context, w, errw io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		exited, err := t.status(e.proc.Pid)

		switch {
		case err != nil:
			ctxlog.Error(ctx, "jobs", "detail", "status check failed", "pid", e.proc.Pid, "error", err)
			fmt.Fprintln(errw, "ERROR: Failed to check background process status")
		case exited:
			ctxlog.Debug(ctx, "jobs", "detail", "job finished", "slot", i+1, "pid", e.proc.Pid)
			fmt.Fprintf(w, "[%d]+  Done %s\n", i+1, e.command)
		default:
			continue
		}

		e.alive = false
		_ = e.proc.Release()
	}

	live := t.entries[:0]
	for _, e := range t.entries {
		if e.alive {
			live = append(live, e)
		}
	}

	clear(t.entries[len(live):])
	t.entries = live
}

// Close releases every handle. The processes themselves are left running.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		_ = e.proc.Release()
	}

	t.entries = t.entries[:0]
}

// Wait4Status polls pid with wait4(WNOHANG).
func Wait4Status(pid int) (bool, error) {
	var ws unix.WaitStatus

	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return false, errors.Join(ErrStatusCheck, err)
	}

	return wpid == pid, nil
}
