// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package send implements the one-shot send subcommand.
package send

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/urfave/cli/v3"
)

const (
	portFlag = "port"
	hostFlag = "host"
)

// SendCmd connects, writes one message and disconnects.
var SendCmd = &cli.Command{
	Name:      "send",
	Usage:     "Send one message to a broadcast server",
	ArgsUsage: "MESSAGE...",
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
	msg := strings.Join(cmd.Args().Slice(), " ")
	if msg == "" {
		return cli.Exit("no message given", 1)
	}

	port, err := broadcast.ParsePort(fmt.Sprint(cmd.Int(portFlag)))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	addr := net.JoinHostPort(cmd.String(hostFlag), fmt.Sprint(port))
	if err := broadcast.Send(ctx, addr, msg); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}
