package config

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// reloadMu prevents concurrent reload attempts from signals and file watches.
var reloadMu sync.Mutex

// WatchSignals reloads the configuration on SIGHUP until ctx is done.
// The returned channel is closed once the handler has stopped.
// A SIGHUP that arrives while a reload is in progress is ignored.
func WatchSignals(ctx context.Context) <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-sigCh:
				handleSIGHUP()
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

func handleSIGHUP() {
	if !reloadMu.TryLock() {
		slog.Debug("SIGHUP received during reload; ignoring")
		return
	}
	defer reloadMu.Unlock()

	slog.Info("received SIGHUP; reloading config")
	_ = Reload() // retains previous config on failure
}
