// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/matt-FFFFFF/mysh/internal/builtins"
	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/matt-FFFFFF/mysh/internal/vars"
	"golang.org/x/sys/unix"
)

const (
	// EnvStage marks a process as a stage helper and names its mode.
	EnvStage = "MYSH_STAGE"
	// EnvJobs carries the background job listing into a stage helper.
	EnvJobs = "MYSH_STAGE_JOBS"
	// StageBuiltin runs an assignment, a builtin or an empty stage.
	StageBuiltin = "stage"
	// StageUnknown reports a command that could not be resolved.
	StageUnknown = "unknown"
)

// IsStage reports whether the current process was started as a stage helper.
func IsStage() bool {
	return os.Getenv(EnvStage) != ""
}

// RunStage performs the single dispatch of a stage helper and returns the
// exit code. argv is the stage's argument vector without the program name.
func RunStage(ctx context.Context, argv []string) int {
	mode := os.Getenv(EnvStage)

	// The snapshot is the pipeline's private copy. Nothing here reads from it:
	// arguments arrive expanded and an assignment only updates this process.
	store, err := vars.Decode(os.Getenv(vars.EnvSnapshot))
	if err != nil {
		ctxlog.Warn(ctx, "stage", "detail", "ignoring variable snapshot", "error", err)
		store = vars.New()
	}

	listing := decodeJobs(ctx, os.Getenv(EnvJobs))

	for _, k := range []string{EnvStage, EnvJobs, vars.EnvSnapshot} {
		_ = os.Unsetenv(k)
	}

	if mode == StageUnknown {
		return unknownCommand(os.Stderr, argv)
	}

	cfg, err := config.Load("")
	if err != nil {
		ctxlog.Warn(ctx, "stage", "detail", "using default configuration", "error", err)
		cfg = config.Default()
	}

	srv := broadcast.New(broadcast.OptionsFromConfig(cfg, os.Stdout))
	defer func() {
		if srv.Running() {
			_ = srv.Stop()
		}
	}()

	env := builtins.NewEnv(cfg, listing, srv)

	return runStage(ctx, builtins.DefaultRegistry, env, store, argv)
}

func runStage(ctx context.Context, reg builtins.Registry, env *builtins.Env, store *vars.Store, argv []string) int {
	if len(argv) == 0 {
		return 0
	}

	if name, value, ok := vars.ParseAssignment(argv[0]); ok {
		store.Set(name, value)
		return 0
	}

	if fn, ok := reg.Lookup(argv[0]); ok {
		if err := fn(ctx, env, argv); err != nil {
			builtins.Report(env.Stderr, argv[0], err)
			return 1
		}

		return 0
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return unknownCommand(env.Stderr, argv)
	}

	// Only returns on failure.
	err = unix.Exec(path, argv, os.Environ())
	ctxlog.Debug(ctx, "stage", "detail", "exec failed", "path", path, "error", err)

	return unknownCommand(env.Stderr, argv)
}

func unknownCommand(w io.Writer, argv []string) int {
	name := ""
	if len(argv) > 0 {
		name = argv[0]
	}

	fmt.Fprintf(w, "ERROR: Unknown command: %s\n", name)

	return 1
}

func encodeJobs(list []jobs.Job) (string, error) {
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeJobs(ctx context.Context, data string) jobs.Snapshot {
	if data == "" {
		return nil
	}

	var out jobs.Snapshot
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		ctxlog.Warn(ctx, "stage", "detail", "ignoring job snapshot", "error", err)
		return nil
	}

	return out
}
