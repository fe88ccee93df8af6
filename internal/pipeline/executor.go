// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline runs tokenized command lines.
//
// A line without pipe markers is dispatched directly: assignments and
// builtins run in-process, everything else becomes one child process that is
// either awaited or recorded as a background job. A line with k stages starts
// exactly k processes wired through k-1 pipes and waits for all of them.
// Stages that are not external programs run in a stage helper, a re-exec of
// the shell binary that performs a single dispatch and exits.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/matt-FFFFFF/mysh/internal/builtins"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/matt-FFFFFF/mysh/internal/lexer"
	"github.com/matt-FFFFFF/mysh/internal/vars"
)

var (
	// ErrFailedToCreatePipe is returned when an OS pipe cannot be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrCouldNotStartProcess is returned when a stage cannot be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrNoExecutable is returned when the stage helper binary is unknown.
	ErrNoExecutable = errors.New("cannot locate shell executable")
)

// Stubbed in tests.
var (
	pipe  = os.Pipe
	sleep = time.Sleep
)

// StartFunc matches os.StartProcess.
type StartFunc func(name string, argv []string, attr *os.ProcAttr) (*os.Process, error)

// Executor runs command lines for one shell.
type Executor struct {
	registry builtins.Registry
	env      *builtins.Env
	jobs     *jobs.Table
	vars     *vars.Store

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	settle   time.Duration
	self     string
	lookPath func(string) (string, error)
	start    StartFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithStdio sets the streams handed to children and builtins.
func WithStdio(in, out, errw *os.File) Option {
	return func(e *Executor) {
		e.stdin, e.stdout, e.stderr = in, out, errw
	}
}

// WithRegistry replaces the builtin table.
func WithRegistry(r builtins.Registry) Option {
	return func(e *Executor) {
		e.registry = r
	}
}

// WithSettle sets the delay before a background job is recorded.
func WithSettle(d time.Duration) Option {
	return func(e *Executor) {
		e.settle = d
	}
}

// WithSelf sets the binary used as stage helper.
func WithSelf(path string) Option {
	return func(e *Executor) {
		e.self = path
	}
}

// WithStartFunc replaces os.StartProcess.
func WithStartFunc(fn StartFunc) Option {
	return func(e *Executor) {
		e.start = fn
	}
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Executor) {
		e.lookPath = fn
	}
}

// New returns an Executor operating on store and table. env supplies
// everything builtins need besides stdio.
func New(store *vars.Store, table *jobs.Table, env *builtins.Env, opts ...Option) *Executor {
	if env == nil {
		env = builtins.NewEnv(nil, table, nil)
	}

	e := &Executor{
		registry: builtins.DefaultRegistry,
		env:      env,
		jobs:     table,
		vars:     store,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		settle:   10 * time.Millisecond,
		lookPath: exec.LookPath,
		start:    os.StartProcess,
	}

	if self, err := os.Executable(); err == nil {
		e.self = self
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Vars returns the active variable store.
func (e *Executor) Vars() *vars.Store {
	return e.vars
}

// Run executes argv, splitting it into pipeline stages at pipe markers.
// It returns the states of every process it waited for.
func (e *Executor) Run(ctx context.Context, argv []string, background bool) []*os.ProcessState {
	return e.RunStages(ctx, lexer.SplitPipeline(argv), background)
}

// RunStages executes stages that are already split, as produced by
// lexer.Line.Stages. One stage is dispatched directly.
func (e *Executor) RunStages(ctx context.Context, stages [][]string, background bool) []*os.ProcessState {
	switch len(stages) {
	case 0:
		return nil
	case 1:
		return e.Dispatch(ctx, stages[0], background)
	}

	if background {
		ctxlog.Debug(ctx, "pipeline", "detail", "background marker ignored for multi-stage pipeline", "stages", len(stages))
	}

	return e.runPipeline(ctx, stages)
}

// Dispatch runs a single command: an assignment, an in-process builtin, or
// one child process which is awaited or recorded as a background job.
func (e *Executor) Dispatch(ctx context.Context, argv []string, background bool) []*os.ProcessState {
	if len(argv) == 0 {
		return nil
	}

	if name, value, ok := vars.ParseAssignment(argv[0]); ok {
		e.vars.Set(name, value)
		ctxlog.Debug(ctx, "pipeline", "detail", "variable assigned", "name", name)

		return nil
	}

	if fn, ok := e.registry.Lookup(argv[0]); ok && !background {
		env := e.env.WithStdio(e.stdin, e.stdout, e.stderr)
		if err := fn(ctx, env, argv); err != nil {
			ctxlog.Debug(ctx, "pipeline", "detail", "builtin failed", "name", argv[0], "error", err)
			builtins.Report(e.stderr, argv[0], err)
		}

		return nil
	}

	proc, err := e.startExternal(ctx, argv, e.stdin, e.stdout, "")
	if err != nil {
		ctxlog.Error(ctx, "pipeline", "detail", "start failed", "argv", argv, "error", err)
		fmt.Fprintln(e.stderr, "ERROR: Failed to fork process")

		return nil
	}

	if !background {
		return e.wait(ctx, proc)
	}

	sleep(e.settle)

	slot, err := e.jobs.Add(proc, strings.Join(argv, " "))
	if err != nil {
		ctxlog.Warn(ctx, "pipeline", "detail", "background job not tracked", "pid", proc.Pid, "error", err)
		fmt.Fprintln(e.stderr, "ERROR: Too many background processes")

		go func() { _, _ = proc.Wait() }()

		return nil
	}

	fmt.Fprintf(e.stdout, "[%d] %d\n", slot, proc.Pid)

	return nil
}

func (e *Executor) runPipeline(ctx context.Context, stages [][]string) []*os.ProcessState {
	pipes := make([][2]*os.File, 0, len(stages)-1)

	for range len(stages) - 1 {
		r, w, err := pipe()
		if err != nil {
			ctxlog.Error(ctx, "pipeline", "detail", "pipe creation failed", "error", errors.Join(ErrFailedToCreatePipe, err))
			fmt.Fprintln(e.stderr, "ERROR: Failed to create pipe")
			closePipes(pipes)

			return nil
		}

		pipes = append(pipes, [2]*os.File{r, w})
	}

	// Stages work on a copy so assignments never reach the shell. Words are
	// already expanded, so the helper only uses the snapshot as the target of
	// a stage assignment, which is discarded when the helper exits.
	saved := e.vars
	e.vars = saved.Clone()

	defer func() { e.vars = saved }()

	snapshot, err := e.vars.Encode()
	if err != nil {
		ctxlog.Warn(ctx, "pipeline", "detail", "variable snapshot failed", "error", err)
	}

	procs := make([]*os.Process, 0, len(stages))
	last := len(stages) - 1

	for i, argv := range stages {
		in, out := e.stdin, e.stdout
		if i > 0 {
			in = pipes[i-1][0]
		}

		if i < last {
			out = pipes[i][1]
		}

		proc, err := e.startStage(ctx, argv, in, out, snapshot)
		if err != nil {
			ctxlog.Error(ctx, "pipeline", "detail", "stage start failed", "stage", i, "argv", argv, "error", err)
			fmt.Fprintln(e.stderr, "ERROR: Failed to fork process")

			continue
		}

		procs = append(procs, proc)
	}

	closePipes(pipes)

	states := make([]*os.ProcessState, 0, len(procs))
	for _, p := range procs {
		states = append(states, e.wait(ctx, p)...)
	}

	return states
}

// startStage starts one pipeline stage. External programs run directly,
// everything else in the stage helper.
func (e *Executor) startStage(ctx context.Context, argv []string, in, out *os.File, snapshot string) (*os.Process, error) {
	if len(argv) > 0 {
		_, _, assign := vars.ParseAssignment(argv[0])
		_, builtin := e.registry.Lookup(argv[0])

		if !assign && !builtin {
			return e.startExternal(ctx, argv, in, out, snapshot)
		}
	}

	return e.startHelper(ctx, StageBuiltin, argv, in, out, snapshot)
}

// startExternal resolves argv[0] on PATH and starts it. Unresolvable names
// start the helper in unknown mode so the failure is reported by a child.
func (e *Executor) startExternal(ctx context.Context, argv []string, in, out *os.File, snapshot string) (*os.Process, error) {
	path, err := e.lookPath(argv[0])
	if err != nil {
		ctxlog.Debug(ctx, "pipeline", "detail", "command not found", "name", argv[0], "error", err)
		return e.startHelper(ctx, StageUnknown, argv, in, out, snapshot)
	}

	ctxlog.Debug(ctx, "pipeline", "detail", "starting process", "path", path, "args", argv[1:])

	proc, err := e.start(path, argv, &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{in, out, e.stderr},
	})
	if err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	return proc, nil
}

func (e *Executor) startHelper(ctx context.Context, mode string, argv []string, in, out *os.File, snapshot string) (*os.Process, error) {
	if e.self == "" {
		return nil, ErrNoExecutable
	}

	env := append(os.Environ(),
		EnvStage+"="+mode,
		vars.EnvSnapshot+"="+snapshot,
	)

	if e.env != nil && e.env.Jobs != nil {
		if data, err := encodeJobs(e.env.Jobs.Active()); err == nil {
			env = append(env, EnvJobs+"="+data)
		}
	}

	ctxlog.Debug(ctx, "pipeline", "detail", "starting stage helper", "mode", mode, "argv", argv)

	proc, err := e.start(e.self, append([]string{"mysh"}, argv...), &os.ProcAttr{
		Env:   env,
		Files: []*os.File{in, out, e.stderr},
	})
	if err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	return proc, nil
}

func (e *Executor) wait(ctx context.Context, p *os.Process) []*os.ProcessState {
	state, err := p.Wait()
	if err != nil {
		ctxlog.Warn(ctx, "pipeline", "detail", "wait failed", "pid", p.Pid, "error", err)
		return nil
	}

	ctxlog.Debug(ctx, "pipeline", "detail", "process finished", "pid", p.Pid, "exitCode", state.ExitCode())

	return []*os.ProcessState{state}
}

func closePipes(pipes [][2]*os.File) {
	for _, p := range pipes {
		_ = p[0].Close()
		_ = p[1].Close()
	}
}
