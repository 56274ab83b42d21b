// Package cmd defines and implements the CLI commands for the planner
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/config"
	"github.com/ozayn/planner/internal/extractor"
	"github.com/ozayn/planner/internal/fetcher"
	"github.com/ozayn/planner/internal/logging"
	"github.com/ozayn/planner/internal/orchestrator"
	"github.com/ozayn/planner/internal/pipeline"
	"github.com/ozayn/planner/internal/sink"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planner",
		Short: "Event discovery pipeline for museum and cultural sites",
		Long: `planner fetches event listings from configured museum and cultural
sites, extracts event candidates with confidence scores, and reconciles
them against previously captured snapshots.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runtime bundles the pieces every subcommand needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func loadRuntime() (runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return runtime{}, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return runtime{}, fmt.Errorf("init logger: %w", err)
	}
	return runtime{cfg: cfg, logger: logger}, nil
}

func (rt runtime) syncLogger() {
	_ = rt.logger.Sync() //nolint:errcheck // best-effort flush
}

// buildSink selects Postgres when a DSN is configured and falls back to the
// in-memory store otherwise. The returned cleanup closes the pool.
func buildSink(ctx context.Context, rt runtime) (pipeline.Sink, func(), error) {
	if rt.cfg.DB.DSN == "" {
		rt.logger.Info("no db.dsn configured; using in-memory event store")
		return sink.NewMemory(nil), func() {}, nil
	}
	store, pool, err := sink.NewPostgres(ctx, rt.cfg.DB.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, pool.Close, nil
}

func buildOrchestrator(rt runtime, snk pipeline.Sink) *orchestrator.Orchestrator {
	limiter := fetcher.NewSourceLimiter(fetcher.LimiterConfig{
		DefaultMinDelay: secondsToDuration(rt.cfg.RateLimit.MinDelaySeconds),
		DefaultMaxDelay: secondsToDuration(rt.cfg.RateLimit.MaxDelaySeconds),
		HostRPS:         rt.cfg.RateLimit.HostRPS,
		HostBurst:       rt.cfg.RateLimit.HostBurst,
	})
	retry := fetcher.NewRetryPolicy(fetcher.RetryConfig{
		MaxAttempts: rt.cfg.HTTP.MaxRetries,
		BaseDelay:   time.Duration(rt.cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:    time.Duration(rt.cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	})
	f := fetcher.New(fetcher.Config{
		UserAgent:    rt.cfg.HTTP.UserAgent,
		Timeout:      rt.cfg.FetchTimeout(),
		MaxRedirects: rt.cfg.HTTP.MaxRedirects,
	}, limiter, retry, rt.logger)

	ext := extractor.New(rt.cfg.Weights, rt.logger)

	return orchestrator.New(f, ext, snk, nil, orchestrator.Config{
		Concurrency:   rt.cfg.Discovery.Concurrency,
		FetchTimeout:  rt.cfg.FetchTimeout(),
		MinConfidence: rt.cfg.Discovery.MinConfidence,
		Persist:       rt.cfg.Discovery.Persist && snk != nil,
	}, rt.logger)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
