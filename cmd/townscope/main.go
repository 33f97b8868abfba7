// Package main provides the townscope CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/townscope/townscope/internal/logging"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "townscope",
		Short: "Explainable retirement town matching",
		Long: `Townscope scores retirement towns against a preference profile across
region, climate, culture, hobbies, administration and budget, and explains
every match.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logging.Init(logging.Config{Level: level, Format: "console", Output: cmd.ErrOrStderr()})
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		newScoreCmd(),
		newRankCmd(),
		newWeightsCmd(),
		newValidateCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
