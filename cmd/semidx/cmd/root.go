// Package cmd implements the semidx CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kvasirlabs/semidx/internal/logging"
	"github.com/kvasirlabs/semidx/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd builds the semidx command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semidx",
		Short: "Semantic indexing and similarity search for project content",
		Long: `semidx chunks tasks, code, and documentation, embeds the chunks with a
configurable embedding provider, and answers similarity queries over the
stored vectors.

Run 'semidx index code' in a project directory to build the index, then
'semidx search "query"' to search it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env may carry OPENAI_API_KEY or SEMIDX_* overrides.
			_ = godotenv.Load()

			logCfg := logging.DefaultConfig()
			if debugMode {
				logCfg.Level = "debug"
				logCfg.WriteToStderr = true
			}
			cleanup, err := logging.SetupDefault(logCfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: logging setup failed: %v\n", err)
				return nil
			}
			loggingCleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggingCleanup != nil {
				loggingCleanup()
			}
		},
	}

	cmd.SetVersionTemplate("semidx version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}
