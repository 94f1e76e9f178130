package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/holdings-sync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler in the foreground",
	Long: `Runs the background scheduler, which requests a snapshot for every
configured tenant whenever the holdings-sync task is due. Edits to the
tenant list in the configuration file are picked up without a restart.
Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	logger.SetTimestamps(true)
	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	// The sink outlives the signal: it keeps applying pages until the
	// loads already running have finished.
	actorCtx, stopActor := context.WithCancel(context.WithoutCancel(ctx))
	defer stopActor()

	var wg sync.WaitGroup
	background := func(runCtx context.Context, name string, run func(context.Context) error) {
		if run == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("%s stopped: %v", name, err)
			}
		}()
	}
	background(actorCtx, "sink", a.Actor)
	background(ctx, "config watcher", a.Watch)

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err = a.Scheduler.Start(ctx)
	if stopErr := a.Scheduler.Stop(); stopErr != nil {
		logger.Warn("Stopping scheduler: %v", stopErr)
	}
	if a.Drain != nil {
		logger.Info("Waiting for running loads to finish")
		a.Drain()
	}
	stopActor()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
