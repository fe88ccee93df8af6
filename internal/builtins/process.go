// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtins

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoProcess is returned by kill when the target does not exist.
	ErrNoProcess = errors.New("the process does not exist")
	// ErrInvalidSignal is returned by kill for a bad or refused signal.
	ErrInvalidSignal = errors.New("invalid signal specified")
	// ErrInvalidPid is returned by kill for a non-positive process id.
	ErrInvalidPid = errors.New("invalid process ID")
)

// KillFunc sends a signal; replaced in tests.
var KillFunc = unix.Kill

// Echo prints its arguments separated by spaces.
func Echo(_ context.Context, env *Env, args []string) error {
	_, err := fmt.Fprintln(env.Stdout, strings.Join(args[1:], " "))
	return err
}

// Ps lists background jobs as "<command> <pid>".
func Ps(_ context.Context, env *Env, _ []string) error {
	if env.Jobs == nil {
		return nil
	}

	for _, j := range env.Jobs.Active() {
		fmt.Fprintf(env.Stdout, "%s %d\n", j.Command, j.Pid)
	}

	return nil
}

// Kill sends a signal, SIGTERM by default, to a process.
//
//	kill pid [signum]
func Kill(_ context.Context, _ *Env, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: kill requires at least a process ID", ErrUsage)
	}

	pid, err := strconv.Atoi(args[1])
	if err != nil || pid <= 0 {
		return ErrInvalidPid
	}

	sig := unix.SIGTERM

	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return ErrInvalidSignal
		}

		sig = unix.Signal(n)
	}

	if err := KillFunc(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrNoProcess
		}

		return ErrInvalidSignal
	}

	return nil
}
