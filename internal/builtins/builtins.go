// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package builtins provides the commands the shell runs in-process.
package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/spf13/afero"
)

var (
	// ErrUsage is returned when a builtin is called with missing arguments.
	ErrUsage = errors.New("usage")
	// ErrInvalidPath is returned when a path cannot be listed or entered.
	ErrInvalidPath = errors.New("invalid path")
	// ErrOpenFile is returned when a file argument cannot be opened.
	ErrOpenFile = errors.New("cannot open file")
	// ErrOption is returned for malformed or conflicting options.
	ErrOption = errors.New("invalid option")
)

// Builtin is an in-process command. args[0] is the command name.
type Builtin func(ctx context.Context, env *Env, args []string) error

// JobLister exposes the background jobs to ps.
type JobLister interface {
	Active() []jobs.Job
}

// ServerControl starts and stops the broadcast server.
type ServerControl interface {
	Start(ctx context.Context, port int) error
	Stop() error
}

// Env is everything a builtin may touch.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs
	Jobs   JobLister
	Server ServerControl
	Config *config.Config
	Chdir  func(string) error
	Getenv func(string) string
}

// FsFactory returns the filesystem used by NewEnv.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// NewEnv returns an Env bound to the process stdio and filesystem.
func NewEnv(cfg *config.Config, jl JobLister, srv ServerControl) *Env {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Fs:     FsFactory(),
		Jobs:   jl,
		Server: srv,
		Config: cfg,
		Chdir:  os.Chdir,
		Getenv: os.Getenv,
	}
}

// WithStdio returns a shallow copy of e using the given streams.
func (e *Env) WithStdio(in io.Reader, out, errw io.Writer) *Env {
	cp := *e
	cp.Stdin, cp.Stdout, cp.Stderr = in, out, errw

	return &cp
}

// Registry maps command names to builtins.
type Registry map[string]Builtin

// DefaultRegistry holds every builtin shipped with the shell.
var DefaultRegistry = make(Registry)

// Register adds a builtin to the default registry.
func Register(name string, fn Builtin) {
	DefaultRegistry[name] = fn
}

// Lookup returns the builtin called name.
func (r Registry) Lookup(name string) (Builtin, bool) {
	fn, ok := r[name]
	return fn, ok && fn != nil
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

func init() {
	Register("echo", Echo)
	Register("ls", Ls)
	Register("cd", Cd)
	Register("cat", Cat)
	Register("wc", Wc)
	Register("ps", Ps)
	Register("kill", Kill)
	Register("start-server", StartServer)
	Register("close-server", CloseServer)
	Register("send", Send)
	Register("start-client", StartClient)
}

// Report writes the failure of builtin name to w.
func Report(w io.Writer, name string, err error) {
	if err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", Message(err))
	}

	fmt.Fprintf(w, "ERROR: Builtin failed: %s\n", name)
}

// Message renders err for the user with a leading capital.
func Message(err error) string {
	s := err.Error()

	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
