// Package cli implements the holdings-sync command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driving"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options are the global flags handed to the application factory.
type Options struct {
	ConfigDir string
	DataDir   string
}

// App is the wired application the commands operate on.
type App struct {
	Tenants   driven.TenantConfigStore
	Holdings  driven.HoldingsStore
	Tasks     driven.SchedulerStore
	Loader    driving.HoldingsLoader
	Sink      driving.HoldingsSink
	Scheduler driving.Scheduler

	// Actor applies sink messages until ctx is cancelled. Optional.
	Actor func(ctx context.Context) error

	// Drain blocks until background loader runs have finished. Optional.
	Drain func()

	// Watch follows configuration changes until ctx is cancelled. Optional.
	Watch func(ctx context.Context) error

	// Close releases storage. Optional.
	Close func() error
}

var (
	opts       Options
	verbose    bool
	app        *App
	appFactory func(Options) (*App, error)
)

var rootCmd = &cobra.Command{
	Use:   "holdings-sync",
	Short: "Synchronise vendor holdings into a local store",
	Long: `holdings-sync imports a vendor-hosted catalogue of holdings into a local
database. Remote snapshots are reused while fresh, and the transactional
strategy loads only the changes since the last completed load.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.holdings-sync)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.holdings-sync/data)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetAppFactory registers the function that wires the application once
// flags are parsed.
func SetAppFactory(factory func(Options) (*App, error)) {
	appFactory = factory
}

// Execute runs the root command and releases the application afterwards.
func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

// getApp returns the application, building it on first use.
func getApp() (*App, error) {
	if app != nil {
		return app, nil
	}
	if appFactory == nil {
		return nil, errors.New("application not configured")
	}
	built, err := appFactory(opts)
	if err != nil {
		return nil, err
	}
	app = built
	return app, nil
}

func closeApp() {
	if app == nil || app.Close == nil {
		return
	}
	if err := app.Close(); err != nil {
		logger.Warn("Closing application: %v", err)
	}
	app = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
