package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

var loadCmd = &cobra.Command{
	Use:   "load <tenant-id>",
	Short: "Reload a tenant from the full snapshot",
	Long: `Synchronously reloads every holding of a tenant from the vendor's global
snapshot, populating a new snapshot first when the current one is stale.
Existing holdings are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Sink == nil {
		return errors.New("sink not configured")
	}

	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	tenant, err := a.Tenants.GetTenant(ctx, args[0])
	if err != nil {
		return fmt.Errorf("tenant %s: %w", args[0], err)
	}

	cmd.Printf("Loading holdings for tenant: %s...\n", tenant.TenantID)
	if err := a.Sink.LoadHoldings(ctx, *tenant); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	status, err := a.Sink.Status(ctx, domain.TenantKey{TenantID: tenant.TenantID, CredentialsID: tenant.CredentialsID})
	if err == nil {
		cmd.Printf("Loaded %d records in %d pages.\n", status.ImportedRecords, status.ImportedPages)
	}
	return nil
}
