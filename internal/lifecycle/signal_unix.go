// Signal handling for the shutdown run. SIGINT and SIGTERM cancel the UI;
// SIGHUP is ignored separately by the detach sequence.

//go:build !windows

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalContext returns a context cancelled by SIGINT or SIGTERM. The stop
// function restores default signal behavior.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
