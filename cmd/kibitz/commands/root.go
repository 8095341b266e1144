package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	enginesPath string
	verbose     bool
	jsonOutput  bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kibitz",
		Short: "kibitz - chess engine host",
		Long: `kibitz runs UCI chess engines as child processes and shows their analysis.

It keeps a registry of engines with the options each one reported, discovers
options by talking to the engine, streams search output while analysing a
position and records analysis sessions in a local SQLite database.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path (default ./kibitz.yaml)")
	rootCmd.PersistentFlags().StringVarP(&enginesPath, "engines", "e", "", "engine registry file, overrides the settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newEnginesCommand())
	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newAnalyseCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
