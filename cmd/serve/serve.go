// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package serve runs the broadcast server without an interactive shell.
package serve

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/matt-FFFFFF/mysh/cmd/cmdstate"
	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
	"github.com/matt-FFFFFF/mysh/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const (
	portFlag = "port"
	hostFlag = "host"
)

// ServeCmd runs the broadcast server until the first termination signal.
var ServeCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the broadcast server in the foreground",
	Description: `Accept clients on the given port and relay their messages until
interrupted. Messages are printed to stdout as "clientN: message". A second
identical signal terminates at once.`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:     portFlag,
			Aliases:  []string{"p"},
			Usage:    "TCP port to listen on",
			Required: true,
		},
		&cli.StringFlag{
			Name:  hostFlag,
			Usage: "Address to bind, defaults to server_host from the configuration",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg := cmdstate.Config(ctx)
	if cmd.IsSet(hostFlag) {
		cfg.ServerHost = cmd.String(hostFlag)
	}

	port, err := broadcast.ParsePort(fmt.Sprint(cmd.Int(portFlag)))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	srv := broadcast.New(broadcast.OptionsFromConfig(cfg, cmd.Root().Writer))
	if err := srv.Start(ctx, port); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctxlog.Info(ctx, "serve", "detail", "listening", "addr", srv.Addr().String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	stopped := make(chan struct{})

	var once sync.Once

	stop := func() {
		once.Do(func() {
			if err := srv.Stop(); err != nil {
				ctxlog.Warn(ctx, "serve", "detail", "stopping server", "error", err)
			}

			close(stopped)
		})
	}

	var watching sync.WaitGroup

	watching.Add(1)

	go func() {
		defer watching.Done()
		signalbroker.Watch(ctx, sigCh, cancel, func(os.Signal) { stop() })
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		stop()
	}

	cancel()
	watching.Wait()
	srv.Wait()
	ctxlog.Info(ctx, "serve", "detail", "server stopped")

	return nil
}
