package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/config"
	"github.com/et-mohedano/demo-delegados/pkg/export"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
	"github.com/et-mohedano/demo-delegados/pkg/report"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the CSV extract of the report collection",
	Long: `Open the report store and write the flattened CSV extract to a
file, or stdout when no output path is given. The service does not need to
be running.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"output file path (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// The export only reads the collection; geometry validation never runs,
	// so an empty index suffices.
	store := report.NewStore(
		log, &cfg.Database, catalog.Default(), geo.NewIndex(log),
	)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("opening report store: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Stopping report store failed")
		}
	}()

	out := os.Stdout

	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		out = f
	}

	if err := export.WriteCSV(out, store.ListAll()); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}
