// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package broadcast

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// ConnectedBanner is printed by Client.Run once connected.
const ConnectedBanner = `Connected to server. Type messages or \connected to check connections.`

var (
	// ErrConnect is returned when the server cannot be reached.
	ErrConnect = errors.New("failed to connect")
	// ErrSend is returned when a message cannot be written.
	ErrSend = errors.New("failed to send message")
	// ErrServerClosed is returned when the server ends the connection.
	ErrServerClosed = errors.New("server closed the connection")
)

// Dial opens a TCP connection to a broadcast server.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	return conn, nil
}

// Send connects to addr, writes msg and disconnects.
func Send(ctx context.Context, addr, msg string) error {
	conn, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	if _, err := io.WriteString(conn, msg); err != nil {
		return errors.Join(ErrSend, err)
	}

	return nil
}

// Client is the line mode client behind start-client.
type Client struct {
	Addr      string
	Poll      time.Duration
	ChunkSize int
}

// Run sends each line read from in and, after each one, waits up to Poll for
// a reply which is printed to out. It returns when in is exhausted.
func (c Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	conn, err := Dial(ctx, c.Addr)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	fmt.Fprintln(out, ConnectedBanner)

	size := c.ChunkSize
	if size <= 0 {
		size = 1024
	}

	buf := make([]byte, size)
	sc := bufio.NewScanner(in)

	for sc.Scan() {
		if _, err := io.WriteString(conn, sc.Text()); err != nil {
			return errors.Join(ErrSend, err)
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.Poll)); err != nil {
			return err
		}

		n, err := conn.Read(buf)
		if n > 0 {
			fmt.Fprintf(out, "%s\n", buf[:n])
		}

		switch {
		case err == nil, errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, io.EOF):
			return ErrServerClosed
		default:
			return err
		}
	}

	return sc.Err()
}
