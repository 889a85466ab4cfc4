package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/spf13/cobra"
)

var sayCmd = &cobra.Command{
	Use:   "say TEXT...",
	Short: "Speak text through the configured speech pipeline",
	Long: `Synthesize TEXT with the configured endpoint and play it. When the
endpoint fails the local voice is used instead.`,
	Example: `  wordbuddy say "The dog runs in the park."`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSay,
}

func init() {
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	svc := newSpeech(cfg.Speech, logger)

	text := strings.Join(args, " ")
	if !svc.Speak(context.Background(), text) {
		return fmt.Errorf("speech subsystem busy")
	}
	svc.Wait()
	return nil
}
