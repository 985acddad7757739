package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baedrik/skulls2/internal/api"
	"github.com/baedrik/skulls2/internal/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the execute and query API over HTTP",
		Long: `Serve exposes the registry over HTTP:

  POST /v1/execute   administrative mutations (admin token)
  POST /v1/query     read-only queries (viewer or admin token)
  GET  /healthz      liveness
  GET  /metrics      Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.settings.ListenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, listen, nil)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: listen_addr from config, :8080)")
	return cmd
}

// serve runs the HTTP server until ctx is done. When ready is non-nil it
// receives the bound address once the listener is open.
func (a *app) serve(ctx context.Context, listen string, ready chan<- string) error {
	log, err := a.newLogger()
	if err != nil {
		return err
	}
	m := metrics.New()
	reg, closeStore, err := a.openRegistry(log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Error("detach backend")
		}
	}()

	handler := api.NewServer(reg, api.Config{
		AdminToken:  a.settings.AdminToken,
		ViewerToken: a.settings.ViewerToken,
	}, log, m)
	if a.settings.AdminToken == "" {
		log.Warn("admin_token is not set; execute is open to every client")
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.WithField("addr", ln.Addr().String()).Info("server started")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
