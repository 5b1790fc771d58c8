package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askTenant string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a grounded question against a tenant's knowledge base",
	Long: `Retrieves the most relevant chunks from the tenant's knowledge base
and generates an answer grounded in them, with source citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askTenant, "tenant", "t", "", "tenant id or alias (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	_ = askCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := ensureServices()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if answerer == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerer.Answer(context.Background(), askTenant, args[0])
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if !answer.Grounded {
		cmd.Println("\n(no relevant passages found; answer is not grounded in the knowledge base)")
		return nil
	}

	cmd.Println("\nSources:")
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s (%s, score %.2f)\n", i+1, src.Title, src.SourceKind, src.Score)
	}
	return nil
}
