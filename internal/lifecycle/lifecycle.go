// Package lifecycle holds the process-wide draining flag read by the health endpoint.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the draining flag. Health reports 503 shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// AwaitShutdown blocks until SIGINT/SIGTERM arrives or ctx ends, then sets the draining
// flag. It returns what triggered the shutdown, for logging.
func AwaitShutdown(ctx context.Context) string {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)

	return awaitShutdown(ctx, sigCh)
}

func awaitShutdown(ctx context.Context, sigCh <-chan os.Signal) string {
	var cause string
	select {
	case s := <-sigCh:
		cause = s.String()
	case <-ctx.Done():
		cause = "context done"
	}
	SetShuttingDown(true)
	return cause
}
