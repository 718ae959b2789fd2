// Package interrupt bridges operating system signals to context
// cancellation so every blocking operation in a run observes a shutdown
// request through its context rather than through signal handlers of its
// own.
package interrupt

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exit is replaceable in tests.
var exit = os.Exit

// NewContext returns a child of parent that is cancelled on the first
// SIGINT or SIGTERM. In-flight work then unwinds through its normal
// cleanup paths. A second signal aborts the process immediately for
// operators who cannot wait for cleanup to finish. The returned stop
// function releases the signal handler; call it once the run is done.
func NewContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	// done tells the goroutine the run finished normally, so it stops
	// waiting for a second signal that will never come.
	done := make(chan struct{})
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			slog.Warn("Received signal, cancelling run and cleaning up", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-ch:
			slog.Error("Received second signal, aborting without cleanup", "signal", sig.String())
			exit(130)
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
		cancel()
	}
	return ctx, stop
}
