package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/api"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var discoverOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the discovery HTTP API",
		Long: `Starts the HTTP server exposing run progress, stored events, health
probes, and Prometheus metrics. With --discover a discovery run is started
in the background as the server comes up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, discoverOnStart)
		},
	}
	cmd.Flags().BoolVar(&discoverOnStart, "discover", false, "start a discovery run on startup")
	return cmd
}

func runServe(cmd *cobra.Command, discoverOnStart bool) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.syncLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snk, closeSink, err := buildSink(ctx, rt)
	if err != nil {
		return err
	}
	defer closeSink()
	orch := buildOrchestrator(rt, snk)

	if discoverOnStart {
		go orch.Run(ctx, rt.cfg.PipelineSources())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.cfg.Server.Port),
		Handler:           api.NewServer(orch, snk, rt.logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("http server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
