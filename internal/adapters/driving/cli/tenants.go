package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List configured tenants",
	RunE:  runTenants,
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
}

func runTenants(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if a.Tenants == nil {
		return errors.New("tenant configuration not available")
	}

	tenants, err := a.Tenants.ListTenants(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants configured.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tCREDENTIALS\tCUSTOMER\tURL")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.TenantID, t.CredentialsID, t.Remote.CustomerID, t.Remote.URL)
	}
	return w.Flush()
}
