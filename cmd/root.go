// Package cmd holds the practicehub command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the release reported by --version.
const Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:           "practicehub",
	Short:         "Practice tracking API with levels, streaks and achievements",
	SilenceUsage:  true,
	SilenceErrors: true,
	// no subcommand runs serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newGrantTokensCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
