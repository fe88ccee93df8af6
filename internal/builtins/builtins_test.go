// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtins

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/jobs"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

type testEnv struct {
	*Env
	in  *bytes.Buffer
	out *bytes.Buffer
	err *bytes.Buffer
}

// newTestEnv returns an Env backed by an in-memory filesystem and buffers.
func newTestEnv(stdin string) testEnv {
	te := testEnv{
		in:  bytes.NewBufferString(stdin),
		out: &bytes.Buffer{},
		err: &bytes.Buffer{},
	}

	te.Env = &Env{
		Stdin:  te.in,
		Stdout: te.out,
		Stderr: te.err,
		Fs:     afero.NewMemMapFs(),
		Config: config.Default(),
		Chdir:  func(string) error { return nil },
		Getenv: func(string) string { return "" },
	}

	return te
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
}

func TestDefaultRegistry(t *testing.T) {
	want := []string{
		"cat", "cd", "close-server", "echo", "kill", "ls",
		"ps", "send", "start-client", "start-server", "wc",
	}

	assert.Equal(t, want, DefaultRegistry.Names())

	_, ok := DefaultRegistry.Lookup("exit")
	assert.False(t, ok)

	r := Registry{"nil": nil}
	_, ok = r.Lookup("nil")
	assert.False(t, ok)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer

	Report(&buf, "cd", errors.Join(ErrInvalidPath))
	assert.Equal(t, "ERROR: Invalid path\nERROR: Builtin failed: cd\n", buf.String())

	buf.Reset()
	Report(&buf, "wc", nil)
	assert.Equal(t, "ERROR: Builtin failed: wc\n", buf.String())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invalid path: /x", Message(errors.New("invalid path: /x")))
	assert.Equal(t, "Échec", Message(errors.New("échec")))
	assert.Equal(t, "", Message(errors.New("")))
}

func TestWithStdio(t *testing.T) {
	te := newTestEnv("")
	var out bytes.Buffer

	cp := te.WithStdio(strings.NewReader("x"), &out, &out)

	assert.Same(t, &out, cp.Stdout)
	assert.Same(t, te.out, te.Stdout, "receiver untouched")
	assert.Equal(t, te.Fs, cp.Fs)
}

func TestNewEnv(t *testing.T) {
	env := NewEnv(nil, jobs.Snapshot{}, nil)

	assert.NotNil(t, env.Config)
	assert.NotNil(t, env.Fs)
	assert.NotNil(t, env.Chdir)
	assert.NotNil(t, env.Getenv)
}
