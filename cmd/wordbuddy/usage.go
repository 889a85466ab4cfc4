package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goodtune/wordbuddy/internal/account"
	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/spf13/cobra"
)

var usagePremium bool

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect or reset daily usage counters",
}

var usageShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show today's usage counters",
	Example: `  wordbuddy usage show
  wordbuddy -c config.yaml usage show --premium`,
	Args: cobra.NoArgs,
	RunE: runUsageShow,
}

var usageResetCmd = &cobra.Command{
	Use:     "reset FEATURE",
	Short:   "Reset the counter for a feature",
	Example: `  wordbuddy usage reset vocabulary`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUsageReset,
}

func init() {
	usageShowCmd.Flags().BoolVar(&usagePremium, "premium", false, "Show the counters as a premium account sees them")

	usageCmd.AddCommand(usageShowCmd)
	usageCmd.AddCommand(usageResetCmd)
	rootCmd.AddCommand(usageCmd)
}

// withGate loads configuration and hands fn a gate over the configured store.
func withGate(fn func(ctx context.Context, gate *usage.Gate) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := quietLogger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	engine, err := newPolicyEngine(cfg.Usage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Policy Engine: %w", err)
	}

	return fn(context.Background(), newGate(cfg.Usage, store.Usage(), engine, clock.Real{}, logger))
}

func runUsageShow(cmd *cobra.Command, args []string) error {
	return withGate(func(ctx context.Context, gate *usage.Gate) error {
		statuses := gate.Status(ctx, account.NewStatic(usagePremium))
		printUsage(statuses)
		return nil
	})
}

func runUsageReset(cmd *cobra.Command, args []string) error {
	feature := usage.Feature(args[0])
	return withGate(func(ctx context.Context, gate *usage.Gate) error {
		if err := gate.Reset(ctx, feature); err != nil {
			return err
		}
		_, _ = color.New(color.FgGreen).Printf("✅ Reset %s counter\n", feature)
		return nil
	})
}

func printUsage(statuses []usage.FeatureStatus) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	_, _ = cyan.Println("\n=== Daily Usage ===")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FEATURE\tDATE\tUSED\tLIMIT\tREMAINING")
	for _, s := range statuses {
		remaining := fmt.Sprintf("%d", s.Remaining)
		switch {
		case s.Remaining == policy.Unlimited:
			remaining = green.Sprint("unlimited")
		case s.Remaining == 0:
			remaining = red.Sprint("0")
		case s.Remaining*2 <= s.Limit:
			remaining = yellow.Sprint(remaining)
		default:
			remaining = green.Sprint(remaining)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.Feature, s.Date, s.Count, s.Limit, remaining)
	}
	_ = w.Flush()
	fmt.Println()
}
