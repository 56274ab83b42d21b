package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ozayn/planner/internal/jobtrack"
	"github.com/ozayn/planner/internal/pipeline"
)

func newDiscoverCmd() *cobra.Command {
	var sourceID string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run event discovery across the configured sources",
		Long: `Fetches each configured source, extracts event candidates, and
reports run progress. With --source only the named source is scraped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, sourceID)
		},
	}
	cmd.Flags().StringVar(&sourceID, "source", "", "scrape only the source with this id")
	return cmd
}

func runDiscover(cmd *cobra.Command, sourceID string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.syncLogger()

	sources := rt.cfg.PipelineSources()
	if sourceID != "" {
		sources = filterSource(sources, sourceID)
		if len(sources) == 0 {
			return fmt.Errorf("unknown source %q", sourceID)
		}
	}

	snk, closeSink, err := buildSink(cmd.Context(), rt)
	if err != nil {
		return err
	}
	defer closeSink()

	orch := buildOrchestrator(rt, snk)
	state := orch.Run(cmd.Context(), sources)

	rt.logger.Info("discovery finished",
		zap.String("run_id", state.RunID),
		zap.String("status", string(state.Status)),
		zap.Int("events_found", state.Counters.EventsFound),
		zap.Int("events_persisted", state.Counters.EventsPersisted),
		zap.Int("sources_failed", state.Counters.SourcesFailed),
	)

	if state.Status == jobtrack.StatusFailed {
		return fmt.Errorf("discovery run failed: %s", state.ErrorText)
	}
	return nil
}

func filterSource(sources []pipeline.Source, id string) []pipeline.Source {
	for _, src := range sources {
		if src.ID == id {
			return []pipeline.Source{src}
		}
	}
	return nil
}
