// Command holdings-sync synchronises vendor holdings into a local store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/holdings-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/holdings-sync/internal/adapters/driven/rmapi"
	"github.com/custodia-labs/holdings-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/holdings-sync/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/holdings-sync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/holdings-sync/internal/adapters/driving/cli"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/core/services"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

func main() {
	cli.SetAppFactory(buildApp)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildApp wires adapters and services from the configuration on disk.
func buildApp(opts cli.Options) (*cli.App, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	cfg := configStore.Config()

	dataDir := opts.DataDir
	if dataDir == "" && opts.ConfigDir != "" {
		dataDir = filepath.Join(opts.ConfigDir, "data")
	}

	// SQLite always holds scheduler state; holdings may live in Postgres.
	local, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	closers := []func() error{local.Close}

	var (
		holdings driven.HoldingsStore   = local.HoldingsStore()
		statuses driven.LoadStatusStore = local.LoadStatusStore()
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := postgres.NewStore(cfg.Storage.DSN)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		holdings, statuses = pg.HoldingsStore(), pg.LoadStatusStore()
		closers = append(closers, pg.Close)
	case "memory":
		holdings, statuses = memory.NewHoldingsStore(), memory.NewLoadStatusStore()
	}
	logger.Debug("Storage: %s (local state in %s)", cfg.Storage.Driver, local.Path())

	gateway := rmapi.NewClient(
		rmapi.WithRateLimit(cfg.Remote.RateLimit),
		rmapi.WithTimeout(time.Duration(cfg.Remote.Timeout)),
	)

	syncCfg := cfg.SyncConfig()
	strategy, err := services.NewStrategy(syncCfg.Strategy, gateway, gateway)
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	sink := services.NewHoldingsSink(holdings, statuses, gateway, syncCfg, services.DefaultMailboxSize)
	orchestrator := services.NewLoadOrchestrator(strategy, sink, syncCfg)
	sink.SetLoader(orchestrator)

	schedCfg := cfg.SchedulerConfig()
	var scheduler *services.Scheduler
	if schedCfg.Enabled {
		scheduler = services.NewScheduler(schedCfg, local.SchedulerStore(), configStore, orchestrator)
	}

	a := &cli.App{
		Tenants:  configStore,
		Holdings: holdings,
		Tasks:    local.SchedulerStore(),
		Loader:   orchestrator,
		Sink:     sink,
		Actor:    sink.Run,
		Drain:    orchestrator.Wait,
		Watch: func(ctx context.Context) error {
			return configStore.Watch(ctx, func(file.Config) {
				logger.Info("Tenant list reloaded; sync and storage settings apply after restart")
			})
		},
		Close: func() error {
			sink.Stop()
			return closeAll(closers)
		},
	}
	if scheduler != nil {
		a.Scheduler = scheduler
	}
	return a, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
