package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/et-mohedano/demo-delegados/pkg/api"
	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/config"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
	"github.com/et-mohedano/demo-delegados/pkg/report"
	"github.com/et-mohedano/demo-delegados/pkg/session"
	"github.com/et-mohedano/demo-delegados/pkg/viewsync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting service",
	Long: `Load region geometry and the delegate directory, open the report
store and serve the reporting API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Geometry first: a service without regions cannot geofence anything.
	loader := geo.NewLoader(log, cfg.Geo.FetchTimeoutDuration())

	regions, irregular, err := loader.Load(
		ctx, cfg.Geo.Colonias, cfg.Geo.Irregular,
	)
	if err != nil {
		return fmt.Errorf("loading region geometry: %w", err)
	}

	directory, err := session.NewDirectory(log, cfg.Users)
	if err != nil {
		return fmt.Errorf("building user directory: %w", err)
	}

	sessions := session.NewContext(log, directory)
	cat := catalog.Default()

	store := report.NewStore(log, &cfg.Database, cat, regions)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting report store: %w", err)
	}

	views := viewsync.New(
		log, viewsync.NewLogRenderer(log), regions, cat, store, sessions,
	)
	views.Start()

	srv := api.NewServer(log, &cfg.Server, api.Deps{
		Regions:   regions,
		Irregular: irregular,
		Catalog:   cat,
		Reports:   store,
		Sessions:  sessions,
		Views:     views,
	})

	if err := srv.Start(ctx); err != nil {
		if stopErr := store.Stop(); stopErr != nil {
			log.WithError(stopErr).Warn("Stopping report store failed")
		}

		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	if err := store.Stop(); err != nil {
		return fmt.Errorf("stopping report store: %w", err)
	}

	return nil
}
