// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package send

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func run(args ...string) error {
	root := &cli.Command{
		Name:           "mysh",
		Writer:         &bytes.Buffer{},
		Commands:       []*cli.Command{SendCmd},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	return root.Run(context.Background(), append([]string{"mysh", "send"}, args...))
}

func TestSendCmd(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer l.Close() //nolint:errcheck

	got := make(chan string, 1)

	go func() {
		conn, err := l.Accept()
		if err != nil {
			got <- err.Error()
			return
		}
		defer conn.Close() //nolint:errcheck

		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		got <- string(buf[:n])
	}()

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, run("--port", fmt.Sprint(port), "--host", "127.0.0.1", "hello", "world"))

	select {
	case msg := <-got:
		assert.Equal(t, "hello world", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("nothing received")
	}
}

func TestSendCmd_Errors(t *testing.T) {
	assert.Error(t, run("--port", "9"))
	assert.Error(t, run("--port", "70000", "x"))
	assert.Error(t, run("msg"))
}
