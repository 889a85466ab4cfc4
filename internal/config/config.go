package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Usage   UsageConfig   `mapstructure:"usage"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Content ContentConfig `mapstructure:"content"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`

	AllowedOrigins []string `mapstructure:"allowed_origins"` // CORS origins for the companion API
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the redis connection for the shared counter store
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level               string `mapstructure:"level"`
	Format              string `mapstructure:"format"`
	ResultRetentionDays int    `mapstructure:"result_retention_days"`
}

// UsageConfig defines daily limits and game tiers
type UsageConfig struct {
	VocabularyLimit int      `mapstructure:"vocabulary_limit"`
	GamesLimit      int      `mapstructure:"games_limit"`
	ChatLimit       int      `mapstructure:"chat_limit"`
	FreeGames       []string `mapstructure:"free_games"`
	PremiumGames    []string `mapstructure:"premium_games"`
	PolicyDir       string   `mapstructure:"policy_dir"` // empty uses the embedded policy
}

// SpeechConfig defines the synthesis endpoint and local audio commands
type SpeechConfig struct {
	Endpoint         string   `mapstructure:"endpoint"`
	RequestTimeout   string   `mapstructure:"request_timeout"`
	PlayerCommand    []string `mapstructure:"player_command"`
	VoiceCommand     string   `mapstructure:"voice_command"`
	VoicePitch       float64  `mapstructure:"voice_pitch"`
	VoiceRate        float64  `mapstructure:"voice_rate"`
	VoiceLanguage    string   `mapstructure:"voice_language"`
	PrefetchAhead    int      `mapstructure:"prefetch_ahead"`
	FailureCooldown  string   `mapstructure:"failure_cooldown"`
	FailureCacheSize int      `mapstructure:"failure_cache_size"`
}

// ContentConfig points at an optional content pool file
type ContentConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("WORDBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.api_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.allowed_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/wordbuddy/wordbuddy.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.result_retention_days", 90)

	// Usage defaults
	v.SetDefault("usage.vocabulary_limit", 5)
	v.SetDefault("usage.games_limit", 10)
	v.SetDefault("usage.chat_limit", 20)
	v.SetDefault("usage.free_games", []string{"matching", "spelling"})
	v.SetDefault("usage.premium_games", []string{
		"memory",
		"speed_round",
		"listen_and_pick",
		"sentence_builder",
		"bubble_pop",
	})
	v.SetDefault("usage.policy_dir", "")

	// Speech defaults
	v.SetDefault("speech.endpoint", "http://127.0.0.1:5002/api/tts")
	v.SetDefault("speech.request_timeout", "10s")
	v.SetDefault("speech.player_command", []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"})
	v.SetDefault("speech.voice_command", "espeak")
	v.SetDefault("speech.voice_pitch", 1.2)
	v.SetDefault("speech.voice_rate", 0.9)
	v.SetDefault("speech.voice_language", "en-US")
	v.SetDefault("speech.prefetch_ahead", 3)
	v.SetDefault("speech.failure_cooldown", "30s")
	v.SetDefault("speech.failure_cache_size", 256)

	// Content defaults
	v.SetDefault("content.path", "")
}

// Defaults returns the configuration with every default applied and no file
// or environment overrides.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// KnownKeys returns the set of recognised configuration keys.
func KnownKeys() map[string]bool {
	v := viper.New()
	setDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// UnknownKeys reads configPath and returns the keys it sets that no setting
// recognises, sorted.
func UnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	known := KnownKeys()
	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Usage.VocabularyLimit < 0 || cfg.Usage.GamesLimit < 0 || cfg.Usage.ChatLimit < 0 {
		return fmt.Errorf("daily limits must not be negative")
	}
	for _, free := range cfg.Usage.FreeGames {
		for _, premium := range cfg.Usage.PremiumGames {
			if free == premium {
				return fmt.Errorf("game %q is both free and premium-only", free)
			}
		}
	}

	if cfg.Speech.PrefetchAhead < 0 {
		return fmt.Errorf("speech prefetch_ahead must not be negative")
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	switch cfg.Storage.Type {
	case "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	return nil
}
