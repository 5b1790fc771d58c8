package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
)

var syncTenant string

var syncCmd = &cobra.Command{
	Use:   "sync [source-kind]",
	Short: "Reconcile a tenant's sources",
	Long: `Runs a full reconciliation pass against the tenant's external sources.
If a source kind is given, only that source is reconciled; otherwise every
configured connector of the tenant runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncTenant, "tenant", "t", "", "canonical tenant id (required)")
	_ = syncCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := ensureServices()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if syncOrchestrator == nil || tenantDirectory == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()
	tenant := domain.TenantID(syncTenant)

	var kinds []domain.SourceKind
	if len(args) > 0 {
		kind := domain.SourceKind(args[0])
		if !kind.IsValid() {
			return fmt.Errorf("unknown source kind %q", args[0])
		}
		kinds = append(kinds, kind)
	} else {
		record, err := tenantDirectory.Get(ctx, tenant)
		if err != nil {
			return err
		}
		for kind := range record.Connectors {
			kinds = append(kinds, kind)
		}
		if len(kinds) == 0 {
			cmd.Println("Tenant has no connectors configured.")
			return nil
		}
	}

	for _, kind := range kinds {
		cmd.Printf("Reconciling %s/%s...\n", tenant, kind)

		report, err := syncWithProgress(ctx, cmd, tenant, kind)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cmd.Printf("Done: %d processed, %d ingested, %d deleted, %d failed.\n",
			report.ItemsProcessed, report.ItemsIngested, report.ItemsDeleted, report.Failures)
	}
	return nil
}

// syncWithProgress runs one pass while displaying progress updates.
func syncWithProgress(ctx context.Context, cmd *cobra.Command, tenant domain.TenantID, kind domain.SourceKind) (*driving.SyncReport, error) {
	type result struct {
		report *driving.SyncReport
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := syncOrchestrator.ReconcileSource(ctx, tenant, kind)
		resCh <- result{report, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resCh:
			return res.report, res.err
		case <-ticker.C:
			// Best effort; a status error never aborts the pass.
			status, err := syncOrchestrator.Status(ctx, tenant, kind)
			if err == nil && status != nil && status.ItemsProcessed > lastCount {
				cmd.Printf("\rProcessing... %d items", status.ItemsProcessed)
				lastCount = status.ItemsProcessed
			}
		}
	}
}
