package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [tenant-id]",
	Short: "Show load progress",
	Long: `Shows the durable load progress of one tenant, or of every configured
tenant when no ID is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Sink == nil {
		return errors.New("sink not configured")
	}
	ctx := commandContext(cmd)

	var tenants []domain.TenantConfiguration
	if len(args) > 0 {
		tenant, err := a.Tenants.GetTenant(ctx, args[0])
		if err != nil {
			return fmt.Errorf("tenant %s: %w", args[0], err)
		}
		tenants = append(tenants, *tenant)
	} else {
		tenants, err = a.Tenants.ListTenants(ctx)
		if err != nil {
			return err
		}
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants configured.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tSTATUS\tPAGES\tRECORDS\tHOLDINGS\tTRANSACTION\tUPDATED")
	for _, t := range tenants {
		key := domain.TenantKey{TenantID: t.TenantID, CredentialsID: t.CredentialsID}
		stored := "-"
		if a.Holdings != nil {
			if n, err := a.Holdings.Count(ctx, key); err == nil {
				stored = strconv.Itoa(n)
			}
		}

		status, err := a.Sink.Status(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t%s\t-\t-\n", t.TenantID, domain.LoadStatusNone, stored)
			continue
		}
		if err != nil {
			return fmt.Errorf("status of %s: %w", t.TenantID, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			t.TenantID, status.Status, status.ImportedPages, status.TotalPages, status.ImportedRecords,
			stored, orDash(status.LastLoadedTransactionID), formatTime(status.UpdatedAt))
		if status.Status == domain.LoadStatusFailed && status.Error != "" {
			fmt.Fprintf(w, "\terror: %s\t\t\t\t\t\n", status.Error)
		}
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
