package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipeops/healthoor/pkg/export"
	"github.com/pipeops/healthoor/pkg/loader"
	"github.com/pipeops/healthoor/pkg/storage"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history as CSV",
	Long: `Load the run history from the configured storage backend and write
it as CSV, either to stdout or to the file given via --output.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"output file (defaults to stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	csv := export.ToCSV(runs)

	if exportOutput == "" {
		fmt.Print(csv)

		return nil
	}

	if err := os.WriteFile(exportOutput, []byte(csv), 0o644); err != nil {
		return fmt.Errorf("writing csv file: %w", err)
	}

	log.WithField("file", exportOutput).
		WithField("runs", len(runs)).
		Info("CSV export written")

	return nil
}
