// Package shutdown runs a blocking task and unwinds it cleanly on SIGINT or
// SIGTERM.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Hook releases one resource during shutdown, such as cancelling a running
// animation or flushing an event sink.
type Hook func(ctx context.Context) error

// notify subscribes c to the shutdown signals. Tests replace it.
var notify = func(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
}

// Run starts task and waits for it to return or for a shutdown signal.
// On a signal the task context is cancelled, hooks run in order sharing a
// single timeout, and Run waits up to that timeout for the task to exit.
// A task interrupted this way is not an error.
func Run(ctx context.Context, logger *slog.Logger, timeout time.Duration, task func(ctx context.Context) error, hooks ...Hook) error {
	if logger == nil {
		logger = slog.Default()
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- task(runCtx)
	}()

	sigChan := make(chan os.Signal, 1)
	notify(sigChan)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig)
		runCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		for _, hook := range hooks {
			if err := hook(shutdownCtx); err != nil {
				logger.Error("shutdown hook failed", "error", err)
			}
		}

		select {
		case err := <-runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded")
		}

		logger.Info("shutdown complete")
		return nil

	case err := <-runDone:
		return err
	}
}
