// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/mysh/cmd/cmdstate"
	internal "github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runBefore runs before with the given arguments and returns the configuration
// it stored.
func runBefore(t *testing.T, args ...string) (*internal.Config, error) {
	t.Helper()

	var got *internal.Config

	root := &cli.Command{
		Name:           "mysh",
		Flags:          rootFlags(),
		Before:         before,
		After:          after,
		Writer:         &bytes.Buffer{},
		ErrWriter:      &bytes.Buffer{},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, _ *cli.Command) error {
			got = cmdstate.Config(ctx)
			return nil
		},
	}

	err := root.Run(context.Background(), append([]string{"mysh"}, args...))

	return got, err
}

func TestBefore_Defaults(t *testing.T) {
	t.Setenv(internal.EnvConfigFile, "")
	t.Setenv(ctxlog.EnvLogLevel, "")

	cfg, err := runBefore(t)
	require.NoError(t, err)
	assert.Equal(t, internal.Default(), cfg)
	assert.Equal(t, "WARN", os.Getenv(ctxlog.EnvLogLevel))
}

func TestBefore_ConfigFileExported(t *testing.T) {
	t.Setenv(internal.EnvConfigFile, "")
	t.Setenv(ctxlog.EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "mysh.toml")
	require.NoError(t, os.WriteFile(path, []byte("prompt = \"% \"\nmax_clients = 4\n"), 0o600))

	cfg, err := runBefore(t, "--config", path, "--log-level", "DEBUG")
	require.NoError(t, err)

	assert.Equal(t, "% ", cfg.Prompt)
	assert.Equal(t, 4, cfg.MaxClients)
	assert.Equal(t, path, os.Getenv(internal.EnvConfigFile))
	assert.Equal(t, "DEBUG", os.Getenv(ctxlog.EnvLogLevel))

	ctxlog.LevelVar.Set(ctxlog.ParseLevel("WARN"))
}

func TestBefore_BadConfig(t *testing.T) {
	t.Setenv(internal.EnvConfigFile, "")
	t.Setenv(ctxlog.EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "mysh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("delivery: carrier-pigeon\n"), 0o600))

	_, err := runBefore(t, "--config", path)
	assert.Error(t, err)
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands {
		names = append(names, c.Name)
	}

	assert.ElementsMatch(t, []string{"chat", "config", "send", "serve"}, names)
}
