package cli

import (
	"context"
	"errors"

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
	a, err := ensureServices()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if tenantDirectory == nil {
		return errors.New("tenant directory not configured")
	}

	tenants, err := tenantDirectory.List(context.Background())
	if err != nil {
		return err
	}

	if len(tenants) == 0 {
		cmd.Println("No tenants configured.")
		return nil
	}

	for _, t := range tenants {
		settings := t.Settings.Normalised()
		cmd.Printf("%s", t.ID)
		if t.Slug != "" {
			cmd.Printf("  (alias %s)", t.Slug)
		}
		cmd.Printf("\n  models: %s / %s\n", settings.EmbeddingModel, settings.ChatModel)
		for kind, conn := range t.Connectors {
			mode := "unsigned"
			if conn.SignsWebhooks() {
				mode = "signed"
			}
			cmd.Printf("  connector %s: %s (webhooks %s)\n", kind, conn.Endpoint, mode)
		}
	}
	return nil
}
