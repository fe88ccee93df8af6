// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStatus lets tests decide which pids have exited.
type fakeStatus struct {
	exited map[int]bool
	failed map[int]bool
	calls  int
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{exited: map[int]bool{}, failed: map[int]bool{}}
}

func (f *fakeStatus) check(pid int) (bool, error) {
	f.calls++
	if f.failed[pid] {
		return false, errors.New("ECHILD")
	}

	return f.exited[pid], nil
}

func fakeProc(t *testing.T, pid int) *os.Process {
	t.Helper()

	p, err := os.FindProcess(pid)
	require.NoError(t, err)

	return p
}

const basePid = 5_000_000

func TestAdd_SlotsAndCapacity(t *testing.T) {
	tbl := New(2, WithStatusFunc(newFakeStatus().check))

	slot, err := tbl.Add(fakeProc(t, basePid+1), "sleep 10")
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	slot, err = tbl.Add(fakeProc(t, basePid+2), "sleep 20")
	require.NoError(t, err)
	assert.Equal(t, 2, slot)

	_, err = tbl.Add(fakeProc(t, basePid+3), "sleep 30")
	require.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 2, tbl.Len())

	jobs := tbl.Active()
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{Slot: 1, Pid: basePid + 1, Command: "sleep 10"}, jobs[0])
	assert.Equal(t, Job{Slot: 2, Pid: basePid + 2, Command: "sleep 20"}, jobs[1])
}

func TestNew_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestReap_IdempotentWithoutChange(t *testing.T) {
	fs := newFakeStatus()
	tbl := New(4, WithStatusFunc(fs.check))
	_, _ = tbl.Add(fakeProc(t, basePid+1), "a")
	_, _ = tbl.Add(fakeProc(t, basePid+2), "b")

	var out, errOut bytes.Buffer

	tbl.Reap(context.Background(), &out, &errOut)
	tbl.Reap(context.Background(), &out, &errOut)

	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 4, fs.calls)
}

func TestReap_CompactsAndKeepsOrder(t *testing.T) {
	fs := newFakeStatus()
	tbl := New(4, WithStatusFunc(fs.check))
	_, _ = tbl.Add(fakeProc(t, basePid+1), "first")
	_, _ = tbl.Add(fakeProc(t, basePid+2), "second")
	_, _ = tbl.Add(fakeProc(t, basePid+3), "third")

	fs.exited[basePid+2] = true

	var out, errOut bytes.Buffer

	tbl.Reap(context.Background(), &out, &errOut)
	assert.Equal(t, "[2]+  Done second\n", out.String())
	assert.Empty(t, errOut.String())

	jobs := tbl.Active()
	require.Len(t, jobs, 2)
	assert.Equal(t, "first", jobs[0].Command)
	assert.Equal(t, 1, jobs[0].Slot)
	assert.Equal(t, "third", jobs[1].Command)
	assert.Equal(t, 2, jobs[1].Slot)

	// exactly one notice per finished job
	out.Reset()
	tbl.Reap(context.Background(), &out, &errOut)
	assert.Empty(t, out.String())
	assert.Equal(t, 2, tbl.Len())
}

func TestReap_StatusErrorDropsJob(t *testing.T) {
	fs := newFakeStatus()
	tbl := New(4, WithStatusFunc(fs.check))
	_, _ = tbl.Add(fakeProc(t, basePid+1), "broken")
	_, _ = tbl.Add(fakeProc(t, basePid+2), "fine")

	fs.failed[basePid+1] = true

	var out, errOut bytes.Buffer

	tbl.Reap(context.Background(), &out, &errOut)
	assert.Empty(t, out.String())
	assert.Equal(t, "ERROR: Failed to check background process status\n", errOut.String())
	require.Len(t, tbl.Active(), 1)
	assert.Equal(t, "fine", tbl.Active()[0].Command)
}

func TestReap_FreesCapacity(t *testing.T) {
	fs := newFakeStatus()
	tbl := New(1, WithStatusFunc(fs.check))
	_, err := tbl.Add(fakeProc(t, basePid+1), "one")
	require.NoError(t, err)

	_, err = tbl.Add(fakeProc(t, basePid+2), "two")
	require.ErrorIs(t, err, ErrTableFull)

	fs.exited[basePid+1] = true
	tbl.Reap(context.Background(), &bytes.Buffer{}, &bytes.Buffer{})

	slot, err := tbl.Add(fakeProc(t, basePid+2), "two")
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
}

func TestReap_RealProcess(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}

	proc, err := os.StartProcess(path, []string{"true"}, &os.ProcAttr{})
	require.NoError(t, err)

	tbl := New(4)
	slot, err := tbl.Add(proc, "true")
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	var out, errOut bytes.Buffer

	require.Eventually(t, func() bool {
		tbl.Reap(context.Background(), &out, &errOut)
		return tbl.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "[1]+  Done true\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestClose(t *testing.T) {
	tbl := New(2, WithStatusFunc(newFakeStatus().check))
	_, _ = tbl.Add(fakeProc(t, basePid+1), "x")
	tbl.Close()
	assert.Equal(t, 0, tbl.Len())
}

func TestWait4Status_NotChild(t *testing.T) {
	_, err := Wait4Status(basePid + 7)
	require.ErrorIs(t, err, ErrStatusCheck)
}

func TestSnapshot(t *testing.T) {
	s := Snapshot{{Slot: 1, Pid: 42, Command: "sleep 1"}}
	assert.Equal(t, []Job(s), s.Active())
}
