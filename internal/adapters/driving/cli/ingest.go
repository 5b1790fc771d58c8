package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/answergrid/answergrid/internal/core/domain"
)

var (
	ingestTenant string
	ingestTitle  string
	ingestID     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Upload a local file into a tenant's knowledge base",
	Long: `Reads a local text file and ingests it as a manual-upload document,
through the same chunking and embedding pipeline as synced sources.
Re-ingesting unchanged content is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "", "canonical tenant id (required)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "stable document id (defaults to the file name)")
	_ = ingestCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := ensureServices()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%s is empty", path)
	}

	name := filepath.Base(path)
	title := ingestTitle
	if title == "" {
		title = name
	}
	id := ingestID
	if id == "" {
		id = name
	}

	err = syncOrchestrator.IngestManual(context.Background(),
		domain.TenantID(ingestTenant), id, title, content)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %s as %q for %s.\n", path, title, ingestTenant)
	return nil
}
