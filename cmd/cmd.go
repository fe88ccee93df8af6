// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/mysh/cmd/chat"
	"github.com/matt-FFFFFF/mysh/cmd/cmdstate"
	"github.com/matt-FFFFFF/mysh/cmd/config"
	"github.com/matt-FFFFFF/mysh/cmd/send"
	"github.com/matt-FFFFFF/mysh/cmd/serve"
	internal "github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/shell"
	"github.com/urfave/cli/v3"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	commandFlag  = "command"
)

// RootCmd is the root command for the CLI. Without a subcommand it starts
// the interactive shell.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		chat.ChatCmd,
		config.ConfigCmd,
		send.SendCmd,
		serve.ServeCmd,
	},
	Flags:     rootFlags(),
	Before:    before,
	After:     after,
	Action:    shellAction,
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "mysh",
	Usage:     "mysh [-c LINE] | mysh serve --port N",
	Description: `mysh is a small interactive shell with pipelines, background jobs
and builtins, plus a line-oriented TCP broadcast server that runs alongside it.`,
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

// rootFlags returns fresh definitions of the global flags.
func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      configFlag,
			Usage:     "Configuration file (.yaml, .yml, .toml or .hcl), a local path or go-getter URL",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     logLevelFlag,
			Usage:    "Log level: DEBUG, INFO, WARN or ERROR",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     commandFlag,
			Aliases:  []string{"c"},
			Usage:    "Run a single command line and exit",
			OnlyOnce: true,
			Local:    true,
		},
	}
}

// before loads the configuration and installs the logger. The config path
// and log level are exported so stage helpers see the same settings. A
// go-getter URL is fetched once and the local copy is exported instead.
func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String(configFlag)
	if isGetterURL(path) {
		local, err := fetchConfig(ctx, path)
		if err != nil {
			return ctx, cli.Exit(err.Error(), 1)
		}

		path = local
	}

	if path != "" {
		_ = os.Setenv(internal.EnvConfigFile, path)
	}

	cfg, err := internal.Load(path)
	if err != nil {
		return ctx, cli.Exit(err.Error(), 1)
	}

	level := cfg.LogLevel
	if env := os.Getenv(ctxlog.EnvLogLevel); env != "" {
		level = env
	}

	if cmd.IsSet(logLevelFlag) {
		level = cmd.String(logLevelFlag)
	}

	_ = os.Setenv(ctxlog.EnvLogLevel, level)
	ctxlog.LevelVar.Set(ctxlog.ParseLevel(level))

	ctx = ctxlog.New(ctx, ctxlog.NewLogger(cmd.Root().ErrWriter, cfg.LogFormat))

	return cmdstate.WithConfig(ctx, cfg), nil
}

func shellAction(ctx context.Context, cmd *cli.Command) error {
	cfg := cmdstate.Config(ctx)
	sh := shell.New(cfg)

	if line := cmd.String(commandFlag); line != "" {
		sh.Exec(ctx, line)

		if err := sh.Close(); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		return nil
	}

	r := shell.NewLinerReader(cfg.HistoryFile)

	err := errors.Join(sh.Run(ctx, r), r.Close(), sh.Close())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}
