package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/policy"
	"github.com/goodtune/wordbuddy/internal/policy/opa"
	"github.com/goodtune/wordbuddy/internal/speech"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/storage/bolt"
	"github.com/goodtune/wordbuddy/internal/storage/redis"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/rs/zerolog"
)

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newPolicyEngine(cfg config.UsageConfig, logger zerolog.Logger) (*policy.Engine, error) {
	return policy.NewEngine(opa.Config{PolicyDir: cfg.PolicyDir}, logger)
}

func newGate(cfg config.UsageConfig, store storage.UsageStore, engine usage.Policy, clk clock.Clock, logger zerolog.Logger) *usage.Gate {
	return usage.NewGate(store, engine, clk, usage.Config{
		Limits: map[usage.Feature]int{
			usage.FeatureVocabulary: cfg.VocabularyLimit,
			usage.FeatureGames:      cfg.GamesLimit,
			usage.FeatureChat:       cfg.ChatLimit,
		},
		FreeGames:    cfg.FreeGames,
		PremiumGames: cfg.PremiumGames,
	}, logger)
}

func loadContent(cfg config.ContentConfig) (*content.Pools, error) {
	var (
		pools *content.Pools
		err   error
	)
	if cfg.Path == "" {
		pools, err = content.Default()
	} else {
		pools, err = content.Load(cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := pools.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content pools: %w", err)
	}
	return pools, nil
}

func newSpeech(cfg config.SpeechConfig, logger zerolog.Logger) *speech.Service {
	timeout := parseDuration(cfg.RequestTimeout, 10*time.Second)
	synth := speech.NewHTTPSynthesizer(cfg.Endpoint, &http.Client{Timeout: timeout})

	return speech.NewService(
		synth,
		speech.NewCommandPlayer(cfg.PlayerCommand),
		speech.NewCommandVoice(cfg.VoiceCommand, logger),
		speech.Config{
			RequestTimeout: timeout,
			Voice: speech.VoiceParams{
				Pitch:    cfg.VoicePitch,
				Rate:     cfg.VoiceRate,
				Language: cfg.VoiceLanguage,
			},
			FailureCooldown:  parseDuration(cfg.FailureCooldown, 30*time.Second),
			FailureCacheSize: cfg.FailureCacheSize,
		},
		logger,
	)
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// quietLogger is used by the one-shot commands.
func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
}
