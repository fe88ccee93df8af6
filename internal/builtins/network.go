// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builtins

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/matt-FFFFFF/mysh/internal/broadcast"
	"github.com/matt-FFFFFF/mysh/internal/config"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// ErrNoServerControl is returned when the shell has no server attached.
var ErrNoServerControl = errors.New("server control unavailable")

// StartServer starts the broadcast server on the given port.
func StartServer(ctx context.Context, env *Env, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: no port provided", ErrUsage)
	}

	port, err := broadcast.ParsePort(args[1])
	if err != nil {
		return err
	}

	if env.Server == nil {
		return ErrNoServerControl
	}

	return env.Server.Start(ctx, port)
}

// CloseServer stops the running broadcast server.
func CloseServer(_ context.Context, env *Env, _ []string) error {
	if env.Server == nil {
		return ErrNoServerControl
	}

	return env.Server.Stop()
}

// Send connects, writes one message and disconnects.
//
//	send <port> <host> <message...>
func Send(ctx context.Context, env *Env, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: send <port> <host> <message>", ErrUsage)
	}

	port, err := broadcast.ParsePort(args[1])
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(args[2], fmt.Sprint(port))
	ctxlog.Debug(ctx, "send", "addr", addr)

	return broadcast.Send(ctx, addr, strings.Join(args[3:], " "))
}

// StartClient sends every stdin line to a server and prints replies.
//
//	start-client <port> <host>
func StartClient(ctx context.Context, env *Env, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: start-client <port> <host>", ErrUsage)
	}

	port, err := broadcast.ParsePort(args[1])
	if err != nil {
		return err
	}

	cfg := env.Config
	if cfg == nil {
		cfg = config.Default()
	}

	c := broadcast.Client{
		Addr:      net.JoinHostPort(args[2], fmt.Sprint(port)),
		Poll:      cfg.Poll(),
		ChunkSize: cfg.ReadChunkSize,
	}

	return c.Run(ctx, env.Stdin, env.Stdout)
}
