package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driving"
)

// statusPollInterval is how often progress is printed while waiting.
var statusPollInterval = 500 * time.Millisecond

var snapshotTimeout time.Duration

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <tenant-id>",
	Short: "Create or reuse a remote snapshot and load it",
	Long: `Runs one synchronisation cycle for a tenant with the configured strategy.
A fresh or running remote snapshot is reused; otherwise a new one is started.
The command waits until the load completes or fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", 0, "give up waiting after this long (0 = no limit)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Loader == nil || a.Sink == nil {
		return errors.New("sync service not configured")
	}

	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()
	if snapshotTimeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, snapshotTimeout)
		defer stop()
	}

	tenant, err := a.Tenants.GetTenant(ctx, args[0])
	if err != nil {
		return fmt.Errorf("tenant %s: %w", args[0], err)
	}

	actorCtx, stopActor := context.WithCancel(ctx)
	defer stopActor()
	if a.Actor != nil {
		go a.Actor(actorCtx) //nolint:errcheck // ends with the command
	}

	cmd.Printf("Synchronising tenant: %s...\n", tenant.TenantID)
	started := time.Now()
	a.Loader.CreateSnapshot(ctx, domain.SnapshotRequest{
		Configuration: tenant.Remote,
		TenantID:      tenant.TenantID,
		CredentialsID: tenant.CredentialsID,
	})

	key := domain.TenantKey{TenantID: tenant.TenantID, CredentialsID: tenant.CredentialsID}
	status, err := waitWithProgress(ctx, cmd, a.Sink, key, started)
	if a.Drain != nil && err == nil {
		a.Drain()
	}
	stopActor()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if status.Status == domain.LoadStatusFailed {
		return fmt.Errorf("sync failed: %s", status.Error)
	}

	cmd.Printf("Tenant %s synchronised: %d records in %d pages.\n",
		tenant.TenantID, status.ImportedRecords, status.ImportedPages)
	return nil
}

// waitWithProgress polls the progress record until the cycle started at
// since reaches a terminal state, printing page progress as it moves.
func waitWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	sink driving.HoldingsSink,
	key domain.TenantKey,
	since time.Time,
) (*domain.HoldingsLoadStatus, error) {
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	lastPages := -1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		// Ignore lookup errors; the record may not exist yet.
		status, err := sink.Status(ctx, key)
		if err != nil || status == nil || status.UpdatedAt.Before(since) {
			continue
		}
		if status.Status.IsTerminal() {
			if lastPages >= 0 {
				cmd.Println()
			}
			return status, nil
		}
		if status.ImportedPages != lastPages && status.TotalPages > 0 {
			cmd.Printf("\rLoading... page %d of %d", status.ImportedPages, status.TotalPages)
			lastPages = status.ImportedPages
		}
	}
}
