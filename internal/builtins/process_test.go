// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtins

import (
	"context"
	"testing"

	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEcho(t *testing.T) {
	te := newTestEnv("")

	require.NoError(t, Echo(context.Background(), te.Env, []string{"echo", "a", "b", "c"}))
	assert.Equal(t, "a b c\n", te.out.String())

	te.out.Reset()
	require.NoError(t, Echo(context.Background(), te.Env, []string{"echo"}))
	assert.Equal(t, "\n", te.out.String())
}

func TestPs(t *testing.T) {
	te := newTestEnv("")
	te.Jobs = jobs.Snapshot{
		{Slot: 1, Pid: 4242, Command: "sleep 30"},
		{Slot: 2, Pid: 4343, Command: "sleep 60"},
	}

	require.NoError(t, Ps(context.Background(), te.Env, []string{"ps"}))
	golden(t).Assert(t, "ps", te.out.Bytes())
}

func TestPs_NoJobs(t *testing.T) {
	te := newTestEnv("")

	require.NoError(t, Ps(context.Background(), te.Env, []string{"ps"}))
	assert.Empty(t, te.out.String())
}

type killCall struct {
	pid int
	sig unix.Signal
}

func stubKill(t *testing.T, result error) *[]killCall {
	t.Helper()

	var calls []killCall

	stubs := gostub.Stub(&KillFunc, func(pid int, sig unix.Signal) error {
		calls = append(calls, killCall{pid, sig})
		return result
	})
	t.Cleanup(stubs.Reset)

	return &calls
}

func TestKill(t *testing.T) {
	ctx := context.Background()

	t.Run("default signal", func(t *testing.T) {
		calls := stubKill(t, nil)
		te := newTestEnv("")

		require.NoError(t, Kill(ctx, te.Env, []string{"kill", "123"}))
		assert.Equal(t, []killCall{{123, unix.SIGTERM}}, *calls)
	})

	t.Run("explicit signal", func(t *testing.T) {
		calls := stubKill(t, nil)
		te := newTestEnv("")

		require.NoError(t, Kill(ctx, te.Env, []string{"kill", "123", "9"}))
		assert.Equal(t, []killCall{{123, unix.SIGKILL}}, *calls)
	})

	t.Run("no such process", func(t *testing.T) {
		stubKill(t, unix.ESRCH)
		te := newTestEnv("")

		err := Kill(ctx, te.Env, []string{"kill", "123"})
		require.ErrorIs(t, err, ErrNoProcess)
		assert.Equal(t, "The process does not exist", Message(err))
	})

	t.Run("refused", func(t *testing.T) {
		stubKill(t, unix.EINVAL)
		te := newTestEnv("")

		assert.ErrorIs(t, Kill(ctx, te.Env, []string{"kill", "123", "999"}), ErrInvalidSignal)
	})

	t.Run("argument errors", func(t *testing.T) {
		calls := stubKill(t, nil)
		te := newTestEnv("")

		assert.ErrorIs(t, Kill(ctx, te.Env, []string{"kill"}), ErrUsage)
		assert.ErrorIs(t, Kill(ctx, te.Env, []string{"kill", "abc"}), ErrInvalidPid)
		assert.ErrorIs(t, Kill(ctx, te.Env, []string{"kill", "0"}), ErrInvalidPid)
		assert.ErrorIs(t, Kill(ctx, te.Env, []string{"kill", "1", "x"}), ErrInvalidSignal)
		assert.Empty(t, *calls)
	})
}
