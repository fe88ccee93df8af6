// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/mysh/internal/ctxlog"
)

// Watch monitors the signal channel and handles signals.
// The first signal of a given type runs onFirst; the second one of the same
// type closes the channel and cancels the context. Watch returns when ctx is
// done or sigCh is closed.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc, onFirst ...func(os.Signal)) {
	sigMap := make(map[os.Signal]struct{})

	for {
		var sig os.Signal

		select {
		case <-ctx.Done():
			return
		case s, ok := <-sigCh:
			if !ok {
				return
			}

			sig = s
		}

		if _, ok := sigMap[sig]; ok {
			ctxlog.Info(ctx, "watchdog", "detail", "received second signal of type, forcefully terminating", "signal", sig.String())
			close(sigCh)
			cancel()

			return
		}

		ctxlog.Info(ctx, "watchdog", "detail", "received first signal of type", "signal", sig.String())

		sigMap[sig] = struct{}{}

		for _, fn := range onFirst {
			fn(sig)
		}
	}
}
