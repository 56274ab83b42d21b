package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/pipeline"
	"github.com/ozayn/planner/internal/reconcile"
)

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <snapshot-a.json> <snapshot-b.json>",
		Short: "Compare two captured event snapshots",
		Long: `Loads two JSON snapshot files, each an array of events, matches
records by their normalized identity (title, date, time), and prints the
additions, removals, and field-level changes between them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, args[0], args[1])
		},
	}
	return cmd
}

// changeDTO is one changed record in the report, keyed by identity string.
type changeDTO struct {
	Key    string                 `json:"key"`
	Deltas []reconcile.FieldDelta `json:"deltas"`
}

type reconcileReport struct {
	OnlyInA []string    `json:"only_in_a"`
	OnlyInB []string    `json:"only_in_b"`
	Matched int         `json:"matched"`
	Changed []changeDTO `json:"changed"`
}

func runReconcile(cmd *cobra.Command, pathA, pathB string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.syncLogger()

	a, err := loadSnapshot(pathA)
	if err != nil {
		return err
	}
	b, err := loadSnapshot(pathB)
	if err != nil {
		return err
	}

	result := reconcile.Reconcile(a, b)

	report := reconcileReport{
		OnlyInA: keyStrings(reconcile.SortedKeys(result.OnlyInA)),
		OnlyInB: keyStrings(reconcile.SortedKeys(result.OnlyInB)),
		Matched: len(result.Matched),
	}
	for _, key := range reconcile.SortedKeys(result.Changed) {
		report.Changed = append(report.Changed, changeDTO{
			Key:    key.String(),
			Deltas: result.Changed[key],
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func keyStrings(keys []identity.Key) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key.String())
	}
	return out
}

func loadSnapshot(path string) ([]pipeline.CanonicalEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var events []pipeline.CanonicalEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return events, nil
}
