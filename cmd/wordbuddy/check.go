package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/wordbuddy/internal/account"
	"github.com/goodtune/wordbuddy/internal/games"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/session"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/spf13/cobra"
)

var checkPremium bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check gate decisions without consuming anything",
	Long:  `Check what the usage gate would decide for a mode or mini-game today.`,
}

var checkModeCmd = &cobra.Command{
	Use:   "mode [flags] MODE",
	Short: "Check entering a mode",
	Example: `  wordbuddy check mode vocabulary
  wordbuddy -c config.yaml check mode games --premium`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckMode,
}

var checkGameCmd = &cobra.Command{
	Use:     "game [flags] GAME",
	Short:   "Check selecting a mini-game",
	Example: `  wordbuddy check game memory`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCheckGame,
}

func init() {
	checkCmd.PersistentFlags().BoolVar(&checkPremium, "premium", false, "Check as a premium account")

	checkCmd.AddCommand(checkModeCmd)
	checkCmd.AddCommand(checkGameCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckMode(cmd *cobra.Command, args []string) error {
	mode, ok := session.ParseMode(args[0])
	if !ok {
		return fmt.Errorf("unknown mode: %s", args[0])
	}
	feature, gated := session.ModeFeature(mode)
	if !gated {
		printDecision(fmt.Sprintf("mode %s", mode), usage.Decision{Allowed: true, Reason: policy.ReasonUngated, Remaining: policy.Unlimited})
		return nil
	}

	return withGate(func(ctx context.Context, gate *usage.Gate) error {
		d := gate.Preview(ctx, account.NewStatic(checkPremium), usage.Request{Feature: feature})
		printDecision(fmt.Sprintf("mode %s", mode), d)
		return nil
	})
}

func runCheckGame(cmd *cobra.Command, args []string) error {
	kind, ok := games.ParseKind(args[0])
	if !ok {
		return fmt.Errorf("unknown game: %s", args[0])
	}

	return withGate(func(ctx context.Context, gate *usage.Gate) error {
		d := gate.Preview(ctx, account.NewStatic(checkPremium), usage.Request{Feature: usage.FeatureGames, Game: string(kind)})
		printDecision(fmt.Sprintf("game %s", kind), d)
		return nil
	})
}

func printDecision(what string, d usage.Decision) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	_, _ = cyan.Println("\n=== Gate Decision ===")
	fmt.Printf("Request:   %s\n", what)
	fmt.Printf("Premium:   %v\n", checkPremium)

	fmt.Print("Decision:  ")
	if d.Allowed {
		_, _ = green.Println("ALLOW")
	} else {
		_, _ = red.Println("DENY")
	}
	fmt.Printf("Reason:    %s\n", d.Reason)
	if d.Remaining == policy.Unlimited {
		fmt.Println("Remaining: unlimited")
	} else {
		fmt.Printf("Remaining: %d\n", d.Remaining)
	}
	fmt.Println()
}
