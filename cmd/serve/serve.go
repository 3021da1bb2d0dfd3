// Package serve provides the serve command that runs the batchmon service.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/metrics"
	"github.com/leefowlercu/batch-monitor/internal/server"
	"github.com/leefowlercu/batch-monitor/internal/version"
)

var (
	serveBind string
	servePort int
)

// ServeCmd runs the job API and metrics endpoint in the foreground.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job API and Prometheus metrics endpoint",
	Long: "Run the job API and Prometheus metrics endpoint in the foreground.\n\n" +
		"The service records job starts and ends posted to /jobs, persists them in the " +
		"configured store, and derives the batch_job_* metric families from the store on " +
		"every scrape of /metrics. Send SIGHUP or edit the config file to reload reloadable " +
		"settings; SIGINT or SIGTERM shut the service down gracefully. When run under " +
		"systemd with Type=notify, readiness and shutdown are reported via sd_notify.",
	Example: `  # Start with the configured address (default 127.0.0.1:8000)
  batchmon serve

  # Listen on all interfaces, port 9400
  batchmon serve --bind 0.0.0.0 --port 9400

  # Use Redis for job records
  BATCHMON_STORE_BACKEND=redis batchmon serve`,
	PreRunE: validateServe,
	RunE:    runServe,
}

func init() {
	ServeCmd.Flags().StringVar(&serveBind, "bind", "", "Address to bind (overrides server.bind)")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
}

func validateServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") && (servePort < 1 || servePort > 65535) {
		return fmt.Errorf("invalid --port %d; must be between 1 and 65535", servePort)
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Current()
	logger := slog.Default()

	srvCfg := server.Config{
		Bind:      cfg.Server.Bind,
		Port:      cfg.Server.Port,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}
	if serveBind != "" {
		srvCfg.Bind = serveBind
	}
	if servePort != 0 {
		srvCfg.Port = servePort
	}

	// Create context that cancels on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	metrics.SetBuildInfo(version.Get().Version, started)

	registry, st, err := cmdutil.OpenRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close job store", "error", err)
		}
	}()
	metrics.SetStoreUp(cfg.Store.Backend, true)

	promRegistry := metrics.NewRegistry(st, logger)

	srv := server.NewServer(registry, srvCfg,
		server.WithLogger(logger),
		server.WithMetricsHandler(metrics.Handler(promRegistry, logger)),
		server.WithBackendName(cfg.Store.Backend),
		server.WithStoreUpReporter(metrics.SetStoreUp),
		server.WithRequestRecorder(metrics.RecordHTTPRequest),
	)
	srv.SetExportDefaults(server.ExportOptionsFromDefaults(cfg.Export.Format, cfg.Export.Limit))

	config.OnReload(func(_, next *config.Config, changed []string) {
		if slices.Contains(changed, "export") {
			srv.SetExportDefaults(server.ExportOptionsFromDefaults(next.Export.Format, next.Export.Limit))
			logger.Info("export defaults updated", "format", next.Export.Format, "limit", next.Export.Limit)
		}
	})

	signalsDone := config.WatchSignals(ctx)
	config.Watch()

	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, ln)
	}()

	logger.Info("batchmon started",
		"addr", ln.Addr().String(),
		"backend", cfg.Store.Backend,
		"version", version.Get().Short(),
	)
	notify(logger, daemon.SdNotifyReady)

	select {
	case err := <-errCh:
		// The server stopped on its own.
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeoutDuration())
	notify(logger, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	<-signalsDone

	logger.Info("batchmon stopped", "uptime", time.Since(started).Round(time.Second))
	return nil
}

// notify sends state to systemd. It is a no-op outside systemd.
func notify(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("notified systemd", "state", state)
	}
}
