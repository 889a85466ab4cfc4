package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Gate metrics
	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_gate_decisions_total",
			Help: "Gate decisions by feature and reason",
		},
		[]string{"feature", "reason"},
	)

	GatedConsumptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_gated_consumptions_total",
			Help: "Gated actions counted against a daily limit",
		},
		[]string{"feature"},
	)

	StorageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_storage_failures_total",
			Help: "Usage counter storage failures",
		},
		[]string{"op"},
	)

	// Speech metrics
	SpeechRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_speech_requests_total",
			Help: "Speech synthesis requests by outcome",
		},
		[]string{"outcome"},
	)

	SpeechRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wordbuddy_speech_request_duration_seconds",
			Help:    "Speech synthesis request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	SpeechCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordbuddy_speech_cache_hits_total",
			Help: "Speech audio cache hits",
		},
	)

	SpeechCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordbuddy_speech_cache_misses_total",
			Help: "Speech audio cache misses",
		},
	)

	SpeechFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordbuddy_speech_fallbacks_total",
			Help: "Speak calls served by the local voice",
		},
	)

	SpeakRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordbuddy_speak_rejections_total",
			Help: "Speak calls rejected while another request was in flight",
		},
	)

	// Game metrics
	RoundsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_rounds_started_total",
			Help: "Mini-game rounds started",
		},
		[]string{"game"},
	)

	RoundsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_rounds_completed_total",
			Help: "Mini-game rounds completed",
		},
		[]string{"game"},
	)

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordbuddy_points_awarded_total",
			Help: "Score points awarded",
		},
		[]string{"game"},
	)

	// Session metrics
	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wordbuddy_open_sessions",
			Help: "Number of open companion sessions",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		GateDecisions,
		GatedConsumptions,
		StorageFailures,
		SpeechRequests,
		SpeechRequestDuration,
		SpeechCacheHits,
		SpeechCacheMisses,
		SpeechFallbacks,
		SpeakRejections,
		RoundsStarted,
		RoundsCompleted,
		PointsAwarded,
		OpenSessions,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			// Create and bind listener ourselves
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
