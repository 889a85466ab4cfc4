package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/spf13/cobra"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the WordBuddy configuration file, its policies and its content pools.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	if _, err := newPolicyEngine(cfg.Usage, quietLogger()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Policy validation failed: %v\n", err)
		return err
	}

	pools, err := loadContent(cfg.Content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Content validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := config.UnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)
	_, _ = fmt.Fprintf(os.Stdout, "✅ Content pools: %d items, %d sentences\n", len(pools.Items), len(pools.Sentences))

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Defaults())

		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	_, _ = cyan.Println("\n[server]")
	dumpField("  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress, yellow, green)
	dumpField("  api_port", cfg.Server.APIPort, defaultCfg.Server.APIPort, yellow, green)
	dumpField("  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort, yellow, green)
	dumpField("  allowed_origins", cfg.Server.AllowedOrigins, defaultCfg.Server.AllowedOrigins, yellow, green)

	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField("  path", cfg.Storage.Path, defaultCfg.Storage.Path, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)

	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)
	dumpField("  result_retention_days", cfg.Logging.ResultRetentionDays, defaultCfg.Logging.ResultRetentionDays, yellow, green)

	_, _ = cyan.Println("\n[usage]")
	dumpField("  vocabulary_limit", cfg.Usage.VocabularyLimit, defaultCfg.Usage.VocabularyLimit, yellow, green)
	dumpField("  games_limit", cfg.Usage.GamesLimit, defaultCfg.Usage.GamesLimit, yellow, green)
	dumpField("  chat_limit", cfg.Usage.ChatLimit, defaultCfg.Usage.ChatLimit, yellow, green)
	dumpField("  free_games", cfg.Usage.FreeGames, defaultCfg.Usage.FreeGames, yellow, green)
	dumpField("  premium_games", cfg.Usage.PremiumGames, defaultCfg.Usage.PremiumGames, yellow, green)
	dumpField("  policy_dir", cfg.Usage.PolicyDir, defaultCfg.Usage.PolicyDir, yellow, green)

	_, _ = cyan.Println("\n[speech]")
	dumpField("  endpoint", cfg.Speech.Endpoint, defaultCfg.Speech.Endpoint, yellow, green)
	dumpField("  request_timeout", cfg.Speech.RequestTimeout, defaultCfg.Speech.RequestTimeout, yellow, green)
	dumpField("  player_command", cfg.Speech.PlayerCommand, defaultCfg.Speech.PlayerCommand, yellow, green)
	dumpField("  voice_command", cfg.Speech.VoiceCommand, defaultCfg.Speech.VoiceCommand, yellow, green)
	dumpField("  voice_pitch", cfg.Speech.VoicePitch, defaultCfg.Speech.VoicePitch, yellow, green)
	dumpField("  voice_rate", cfg.Speech.VoiceRate, defaultCfg.Speech.VoiceRate, yellow, green)
	dumpField("  voice_language", cfg.Speech.VoiceLanguage, defaultCfg.Speech.VoiceLanguage, yellow, green)
	dumpField("  prefetch_ahead", cfg.Speech.PrefetchAhead, defaultCfg.Speech.PrefetchAhead, yellow, green)
	dumpField("  failure_cooldown", cfg.Speech.FailureCooldown, defaultCfg.Speech.FailureCooldown, yellow, green)
	dumpField("  failure_cache_size", cfg.Speech.FailureCacheSize, defaultCfg.Speech.FailureCacheSize, yellow, green)

	_, _ = cyan.Println("\n[content]")
	dumpField("  path", cfg.Content.Path, defaultCfg.Content.Path, yellow, green)
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
