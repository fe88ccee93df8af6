// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package broadcast

import (
	"io"
	"sync"
)

// outbox is a bounded per-session queue drained by one writer goroutine.
// push never blocks; a full queue drops the message.
type outbox struct {
	mu     sync.Mutex
	closed bool
	ch     chan []byte
}

func newOutbox(depth int) *outbox {
	return &outbox{ch: make(chan []byte, depth)}
}

func (o *outbox) push(b []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}

	select {
	case o.ch <- b:
		return true
	default:
		return false
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

// drain writes queued messages to w until the outbox is closed.
// Write errors do not stop the drain so that close always lets it finish.
func (o *outbox) drain(w io.Writer) {
	for b := range o.ch {
		_, _ = w.Write(b)
	}
}
