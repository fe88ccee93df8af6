// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package broadcast

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// session is one connected client. It is referenced only from the roster
// and from its own reader goroutine.
type session struct {
	key  uuid.UUID
	id   string
	conn net.Conn
	out  *outbox

	once     sync.Once
	closeErr error
}

func newSession(conn net.Conn, id string) *session {
	return &session{
		key:  uuid.New(),
		id:   id,
		conn: conn,
	}
}

// deliver sends b to the client, queued or synchronously.
func (c *session) deliver(ctx context.Context, b []byte) {
	if c.out != nil {
		if !c.out.push(b) {
			ctxlog.Warn(ctx, "broadcast", "detail", "outbox full, message dropped", "id", c.id)
		}

		return
	}

	if _, err := c.conn.Write(b); err != nil {
		ctxlog.Debug(ctx, "broadcast", "detail", "write failed", "id", c.id, "error", err)
	}
}

// close shuts the outbox and the connection exactly once.
func (c *session) close() error {
	c.once.Do(func() {
		if c.out != nil {
			c.out.close()
		}

		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}

// read is the per-session loop. One Read is one message.
func (s *Server) read(ctx context.Context, sess *session) {
	defer s.wg.Done()

	buf := make([]byte, s.opts.ChunkSize)

	for {
		n, err := sess.conn.Read(buf)
		if n > 0 {
			s.handle(ctx, sess, string(buf[:n]))
		}

		if err != nil {
			ctxlog.Debug(ctx, "broadcast", "detail", "client disconnected", "id", sess.id, "error", err)
			break
		}
	}

	s.remove(sess)
	_ = sess.close()
}

func (s *Server) handle(ctx context.Context, sess *session, msg string) {
	if strings.TrimRight(msg, "\r\n") == s.opts.ControlToken {
		sess.deliver(ctx, []byte(fmt.Sprintf("%d clients connected", s.Len())))
		return
	}

	s.writeLocal(sess.id + " " + strings.TrimRight(msg, "\r\n") + "\n")

	sess.deliver(ctx, []byte(msg))

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, peer := range s.roster {
		if key == sess.key {
			continue
		}

		peer.deliver(ctx, []byte(sess.id+" "+msg))
	}
}
