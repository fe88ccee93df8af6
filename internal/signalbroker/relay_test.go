// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestRelay_IdleWritesPrompt(t *testing.T) {
	var buf bytes.Buffer

	r := NewRelay(&buf, "mysh$ ")
	r.Notify()

	assert.Equal(t, "\nmysh$ ", buf.String())
	assert.Equal(t, 1, r.Count())
}

func TestRelay_ForegroundRecordsOnly(t *testing.T) {
	var buf bytes.Buffer

	r := NewRelay(&buf, "mysh$ ")

	interrupted := r.Foreground(func() {
		r.Notify()
		r.Notify()
	})

	assert.True(t, interrupted)
	assert.Empty(t, buf.String())
	assert.Equal(t, 2, r.Count())

	assert.False(t, r.Foreground(func() {}))

	// back to idle
	r.Notify()
	assert.Equal(t, "\nmysh$ ", buf.String())
}

func TestRelay_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer

	r := NewRelay(&buf, "> ")
	sigCh := make(chan os.Signal, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		r.Run(context.Background(), sigCh)
	}()

	sigCh <- os.Interrupt

	assert.Eventually(t, func() bool { return r.Count() == 1 }, time.Second, 5*time.Millisecond)
	close(sigCh)
	wg.Wait()
}

func TestRelay_RunStopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRelay(&bytes.Buffer{}, "> ")

	done := make(chan struct{})

	go func() {
		defer close(done)
		r.Run(ctx, make(chan os.Signal))
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
