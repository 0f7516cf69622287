package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/diff"
	"github.com/pipeops/healthoor/pkg/export"
	"github.com/pipeops/healthoor/pkg/loader"
	"github.com/pipeops/healthoor/pkg/storage"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the latest run against its predecessor",
	Long: `Load the run history from the configured storage backend, compare
the latest run with the previous one, and print a plain-text report with
aggregates, transitions, and failures grouped by category.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reader, err := storage.NewReader(&cfg.Source)
	if err != nil {
		return fmt.Errorf("creating storage reader: %w", err)
	}

	runs, err := loader.New(log, reader, cfg.Source.RunWindow, 0).
		Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading runs: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no runs found")
	}

	latest := runs[len(runs)-1]

	var result *diff.Result

	if len(runs) > 1 {
		result = diff.Diff(runs[len(runs)-2], latest)
	}

	groups := classify.GroupByCategory(latest.Tests)

	fmt.Print(export.Summary(latest, result, groups))

	return nil
}
