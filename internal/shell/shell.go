// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shell implements the interactive read, reap and execute loop.
//
// A Shell owns every piece of per-process state: the variable store, the
// background job table, the broadcast server and the executor that ties them
// together. Before each prompt finished background jobs are reaped; each line
// is then tokenized and handed to the executor as the foreground command.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/matt-FFFFFF/mysh/internal/builtins"
	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/matt-FFFFFF/mysh/internal/lexer"
	"github.com/matt-FFFFFF/mysh/internal/pipeline"
	"github.com/matt-FFFFFF/mysh/internal/signalbroker"
	"github.com/matt-FFFFFF/mysh/internal/vars"
)

// ExitCommand leaves the loop.
const ExitCommand = "exit"

// ErrAborted is returned by a LineReader when the user cancels the current
// line. The loop answers with a fresh prompt.
var ErrAborted = errors.New("prompt aborted")

// LineReader supplies input lines. Prompt returns io.EOF at end of input.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// Shell is one interpreter instance.
type Shell struct {
	cfg    *config.Config
	vars   *vars.Store
	jobs   *jobs.Table
	server *broadcast.Server
	exec   *pipeline.Executor
	relay  *signalbroker.Relay

	stdin   *os.File
	stdout  *os.File
	stderr  *os.File
	signals <-chan os.Signal
	extra   []pipeline.Option
}

// Option configures a Shell.
type Option func(*Shell)

// WithStdio sets the streams used by the loop, builtins and children.
func WithStdio(in, out, errw *os.File) Option {
	return func(s *Shell) {
		s.stdin, s.stdout, s.stderr = in, out, errw
	}
}

// WithSignals makes the relay read interrupts from ch instead of subscribing
// to the process signals.
func WithSignals(ch <-chan os.Signal) Option {
	return func(s *Shell) {
		s.signals = ch
	}
}

// WithExecutorOptions passes options through to the pipeline executor.
func WithExecutorOptions(opts ...pipeline.Option) Option {
	return func(s *Shell) {
		s.extra = append(s.extra, opts...)
	}
}

// New builds a Shell from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Shell {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Shell{
		cfg:    cfg,
		vars:   vars.New(),
		jobs:   jobs.New(cfg.MaxJobs),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = broadcast.New(broadcast.OptionsFromConfig(cfg, s.stdout))
	s.relay = signalbroker.NewRelay(s.stdout, cfg.Prompt)

	env := builtins.NewEnv(cfg, s.jobs, s.server)

	execOpts := append([]pipeline.Option{
		pipeline.WithStdio(s.stdin, s.stdout, s.stderr),
		pipeline.WithSettle(cfg.Settle()),
	}, s.extra...)

	s.exec = pipeline.New(s.vars, s.jobs, env, execOpts...)

	return s
}

// Vars returns the shell variables.
func (s *Shell) Vars() *vars.Store { return s.vars }

// Jobs returns the background job table.
func (s *Shell) Jobs() *jobs.Table { return s.jobs }

// Server returns the broadcast server controlled by start-server and close-server.
func (s *Shell) Server() *broadcast.Server { return s.server }

// Run reads lines from r until exit or end of input. Interrupts are relayed
// for the duration of the call.
func (s *Shell) Run(ctx context.Context, r LineReader) error {
	sigCh := s.signals
	if sigCh == nil {
		ch := signalbroker.New(ctx, os.Interrupt)
		defer signalbroker.Stop(ch)

		sigCh = ch
	}

	relayCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.relay.Run(relayCtx, sigCh)
	}()

	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		s.jobs.Reap(ctx, s.stdout, s.stderr)

		line, err := r.Prompt(s.cfg.Prompt)

		switch {
		case err == nil:
		case errors.Is(err, ErrAborted):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.stdout)
			return nil
		default:
			return err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		r.AppendHistory(line)

		if s.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec tokenizes and runs one line as the foreground command. It reports
// whether the line asked the shell to exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	l, err := lexer.Tokenize(line, s.vars)
	if err != nil {
		ctxlog.Debug(ctx, "shell", "detail", "tokenize failed", "error", err)
		fmt.Fprintln(s.stderr, "ERROR: Syntax error")

		return false
	}

	if l.Empty() {
		return false
	}

	stages := l.Stages()
	if len(stages) == 1 && l.Args[0] == ExitCommand {
		return true
	}

	interrupted := s.relay.Foreground(func() {
		s.exec.RunStages(ctx, stages, l.Background)
	})

	if interrupted {
		ctxlog.Debug(ctx, "shell", "detail", "foreground command interrupted")
		fmt.Fprintln(s.stdout)
	}

	return false
}

// Close stops a running server, waits for its goroutines and releases every
// background job handle.
func (s *Shell) Close() error {
	var result error

	if s.server.Running() {
		if err := s.server.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	s.server.Wait()
	s.jobs.Close()

	return result
}
