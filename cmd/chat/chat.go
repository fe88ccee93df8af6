// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package chat implements the full-screen chat client subcommand.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"net"

	"github.com/matt-FFFFFF/mysh/cmd/cmdstate"
	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	portFlag = "port"
	hostFlag = "host"
)

// ChatCmd opens the chat client against a running server.
var ChatCmd = &cli.Command{
	Name:  "chat",
	Usage: "Open an interactive chat client",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:     portFlag,
			Aliases:  []string{"p"},
			Usage:    "Server port",
			Required: true,
		},
		&cli.StringFlag{
			Name:  hostFlag,
			Usage: "Server host",
			Value: "127.0.0.1",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg := cmdstate.Config(ctx)

	port, err := broadcast.ParsePort(fmt.Sprint(cmd.Int(portFlag)))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	conn, err := broadcast.Dial(ctx, net.JoinHostPort(cmd.String(hostFlag), fmt.Sprint(port)))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// Logs written while the alternate screen is active would corrupt it.
	buf := new(bytes.Buffer)
	tuiCtx := ctxlog.New(ctx, ctxlog.NewLogger(buf, cfg.LogFormat))

	err = tui.NewRunner(tuiCtx, conn, cfg.ReadChunkSize).Run(tuiCtx)

	buf.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}
