package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/regionlock/cmd/rlockctl/cmdutil"
	"github.com/marmos91/regionlock/internal/logger"
	"github.com/marmos91/regionlock/pkg/config"
	"github.com/marmos91/regionlock/pkg/regionlock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose regionlock metrics and hot-reload configuration",
	Long: `Run a small HTTP server exposing the regionlock package's
Prometheus collectors at /metrics, and watch the configuration file
for changes so the log level and format can be updated without
restarting this process.

serve itself does not attach to any segment. The collectors are
process-local: they record the requests, sweeps and attachments of the
process that registered them, so the values served here do not include
the activity of other rlockctl invocations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "Address to serve /metrics on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	registry := prometheus.NewRegistry()
	regionlock.RegisterMetrics(registry)

	_, reloadErrs, err := config.Watch(cmdutil.Flags.ConfigPath, func(cfg *config.Config) {
		logger.Info("configuration reloaded")
		logger.SetLevel(cfg.Logging.Level)
		logger.SetFormat(cfg.Logging.Format)
	})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		for err := range reloadErrs {
			logger.Error("configuration reload rejected", logger.Err(err))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: serveAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCtx(cmd.Context(), "serving metrics", logger.ClientOp("serve"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
