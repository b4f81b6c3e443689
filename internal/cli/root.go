package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pgingest",
		Short: "Download a CSV file and load it into a database table",
		Long: asciiLogo + `

pgingest downloads a CSV resource over HTTP, reads it in bounded batches and
writes every batch to a PostgreSQL or SQLite table. The first batch replaces
the table; later batches append to it in source order.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - User declined to continue
  13 - Download failed
  14 - CSV could not be parsed
  15 - Batch could not be written`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("help", false, "Help for pgingest")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")

	cmd.AddCommand(newIngestCommand(&ingestFlagValues{}))
	cmd.AddCommand(versionCmd)
	return cmd
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
