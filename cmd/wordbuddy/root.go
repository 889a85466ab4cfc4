package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wordbuddy",
	Short: "WordBuddy - interactive mini-game learning sessions for young learners",
	Long: `WordBuddy runs vocabulary drills, a daily challenge and seven mini-games
behind a companion API. Free accounts are held to per-day limits decided by an
Open Policy Agent (OPA) gate policy; premium accounts are never counted.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to serve command when no subcommand is provided
		return runServe(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/wordbuddy/config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
