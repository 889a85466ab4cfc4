// Package api serves the companion HTTP API over the session manager.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/wordbuddy/internal/session"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// UsageReporter summarises the daily counters for an account.
type UsageReporter interface {
	Status(ctx context.Context, ent usage.Entitlements) []usage.FeatureStatus
}

// Prefetcher warms the speech cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, text string)
}

// Server represents the companion API server.
type Server struct {
	config   Config
	sessions *session.Manager
	usage    UsageReporter
	speech   Prefetcher
	results  storage.ResultStore
	server   *http.Server
	router   *mux.Router
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, sessions *session.Manager, usage UsageReporter, speech Prefetcher, results storage.ResultStore, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:   cfg,
		sessions: sessions,
		usage:    usage,
		speech:   speech,
		results:  results,
		router:   router,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
		// Preflight requests must match a route for middleware to run.
		s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	s.router.HandleFunc("/api/sessions", s.handleOpenSession).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods("GET")
	s.router.HandleFunc("/api/sessions/{id}", s.handleCloseSession).Methods("DELETE")
	s.router.HandleFunc("/api/sessions/{id}/premium", s.handleSetPremium).Methods("PUT")
	s.router.HandleFunc("/api/sessions/{id}/mode", s.handleSelectMode).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/game", s.handleSelectGame).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/input", s.handleInput).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/replay", s.handleReplay).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/back", s.handleBack).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/consume/{feature}", s.handleConsume).Methods("POST")

	s.router.HandleFunc("/api/speech/prefetch", s.handlePrefetch).Methods("POST")
	s.router.HandleFunc("/api/usage", s.handleUsage).Methods("GET")
	s.router.HandleFunc("/api/results", s.handleResults).Methods("GET")
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"open_sessions": len(s.sessions.List()),
	})
}
