// Package cli implements the answergrid command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/answergrid/answergrid/internal/core/ports/driven"
	"github.com/answergrid/answergrid/internal/core/ports/driving"
	"github.com/answergrid/answergrid/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services the commands run against. Populated by ensureServices from
// the config file, or injected directly in tests.
var (
	answerer         driving.Answerer
	syncOrchestrator driving.SyncOrchestrator
	tenantDirectory  driven.TenantDirectory
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "answergrid",
	Short: "Multi-tenant knowledge backend",
	Long: `answergrid keeps per-tenant knowledge bases reconciled with external
sources and answers natural-language questions grounded in retrieved
document chunks.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default ~/.answergrid/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
