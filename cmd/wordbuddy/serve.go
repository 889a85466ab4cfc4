package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/wordbuddy/internal/api"
	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/goodtune/wordbuddy/internal/metrics"
	"github.com/goodtune/wordbuddy/internal/session"
	"github.com/goodtune/wordbuddy/internal/systemd"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WordBuddy server",
	Long:  `Start the WordBuddy companion API, speech subsystem and metrics endpoint.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting WordBuddy")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	pools, err := loadContent(cfg.Content)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	logger.Info().
		Int("items", len(pools.Items)).
		Int("sentences", len(pools.Sentences)).
		Msg("Content pools loaded")

	policyEngine, err := newPolicyEngine(cfg.Usage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Policy Engine: %w", err)
	}

	clk := clock.Real{}
	gate := newGate(cfg.Usage, store.Usage(), policyEngine, clk, logger)

	logger.Info().
		Int("vocabulary_limit", cfg.Usage.VocabularyLimit).
		Int("games_limit", cfg.Usage.GamesLimit).
		Strs("free_games", cfg.Usage.FreeGames).
		Msg("Usage gate initialized")

	speechService := newSpeech(cfg.Speech, logger)

	manager, err := session.NewManager(session.Deps{
		Gate:          gate,
		Speaker:       speechService,
		Pools:         pools,
		Clock:         clk,
		Results:       store.Results(),
		Events:        session.LogSink{Logger: logger.With().Str("component", "events").Logger()},
		PrefetchAhead: cfg.Speech.PrefetchAhead,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	retention := usage.NewRetentionScheduler(store.Results(), cfg.Logging.ResultRetentionDays, clk, logger)
	retention.Start()

	// Initialize API Server
	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort)
	apiServer := api.NewServer(api.Config{
		ListenAddr:     apiAddr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, manager, gate, speechService, store.Results(), logger)

	if sdListeners.Activated && sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}

	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API Server: %w", err)
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	logger.Info().Msg("WordBuddy startup complete")
	logger.Info().Msgf("API: http://%s", apiAddr)
	if metricsServer != nil {
		logger.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	}

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	stopWatchdog := make(chan struct{})
	if interval := systemd.WatchdogInterval(); interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := systemd.NotifyWatchdog(); err != nil {
						logger.Warn().Err(err).Msg("Failed to ping systemd watchdog")
					}
				case <-stopWatchdog:
					return
				}
			}
		}()
		logger.Debug().Dur("interval", interval).Msg("systemd watchdog enabled")
	}

	// Wait for signals (shutdown or reload)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			logger.Info().Msg("Shutdown signal received, gracefully stopping...")
			break
		}

		logger.Info().Msg("SIGHUP received, reloading policies...")
		if err := systemd.NotifyReloading(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd reloading notification")
		}
		if err := policyEngine.Reload(); err != nil {
			logger.Error().Err(err).Msg("Failed to reload policies")
		} else {
			logger.Info().Msg("Policies reloaded successfully")
		}
		if err := systemd.NotifyReady(); err != nil {
			logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
		}
	}
	signal.Stop(sigChan)
	close(stopWatchdog)

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API Server")
	}

	manager.CloseAll()
	speechService.Stop()
	speechService.Wait()
	retention.Stop()

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("WordBuddy stopped")

	return nil
}
