package speech

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/wordbuddy/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	defaultFailureCooldown  = 30 * time.Second
	defaultFailureCacheSize = 256
)

// FriendlyVoice is the fixed character voice used by the local fallback.
var FriendlyVoice = VoiceParams{Pitch: 1.2, Rate: 0.9, Language: "en-US"}

// Config tunes a Service.
type Config struct {
	RequestTimeout   time.Duration
	Voice            VoiceParams
	FailureCooldown  time.Duration
	FailureCacheSize int
}

// Service is the process-wide speech subsystem. At most one clip plays at a
// time and at most one synthesis request per text is outstanding.
type Service struct {
	synth  Synthesizer
	player Player
	voice  LocalVoice
	config Config
	logger zerolog.Logger

	cache    *gocache.Cache
	group    singleflight.Group
	failures *expirable.LRU[string, struct{}]

	mu         sync.Mutex
	busy       bool
	playCancel context.CancelFunc
	playSeq    uint64

	wg sync.WaitGroup
}

// NewService creates the speech service.
func NewService(synth Synthesizer, player Player, voice LocalVoice, config Config, logger zerolog.Logger) *Service {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.Voice == (VoiceParams{}) {
		config.Voice = FriendlyVoice
	}
	if config.FailureCooldown <= 0 {
		config.FailureCooldown = defaultFailureCooldown
	}
	if config.FailureCacheSize <= 0 {
		config.FailureCacheSize = defaultFailureCacheSize
	}

	return &Service{
		synth:    synth,
		player:   player,
		voice:    voice,
		config:   config,
		logger:   logger.With().Str("component", "speech").Logger(),
		cache:    gocache.New(gocache.NoExpiration, 0),
		failures: expirable.NewLRU[string, struct{}](config.FailureCacheSize, nil, config.FailureCooldown),
	}
}

// Speak plays text, synthesizing it first on a cache miss. It returns false
// when rejected because another speak request is still in flight. Cancelling
// ctx stops playback; a synthesis already under way still fills the cache.
func (s *Service) Speak(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		metrics.SpeakRejections.Inc()
		s.logger.Debug().Str("text", text).Msg("Speak rejected, request in flight")
		return false
	}

	s.stopPlaybackLocked()

	if audio, ok := s.lookup(text); ok {
		metrics.SpeechCacheHits.Inc()
		s.startPlaybackLocked(ctx, audio)
		s.mu.Unlock()
		return true
	}

	s.busy = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		audio, err := s.fetch(ctx, text)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.busy = false

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			metrics.SpeechFallbacks.Inc()
			s.logger.Warn().Err(err).Str("text", text).Msg("Speech synthesis failed, using local voice")
			s.voice.Say(ctx, text, s.config.Voice)
			return
		}
		s.startPlaybackLocked(ctx, audio)
	}()

	return true
}

// Prefetch warms the cache for text without playing it. Failures are
// ignored, and a failed text is not retried until its cooldown passes.
func (s *Service) Prefetch(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if _, ok := s.lookup(text); ok {
		return
	}
	if s.failures.Contains(text) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.fetch(ctx, text); err != nil {
			s.failures.Add(text, struct{}{})
			s.logger.Debug().Err(err).Str("text", text).Msg("Prefetch failed")
		}
	}()
}

// Busy reports whether a speak request is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Playing reports whether a clip is playing.
func (s *Service) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCancel != nil
}

// Cached reports whether audio for text is in the cache.
func (s *Service) Cached(text string) bool {
	_, ok := s.lookup(text)
	return ok
}

// CacheSize returns the number of cached clips.
func (s *Service) CacheSize() int {
	return s.cache.ItemCount()
}

// Stop stops the current playback.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPlaybackLocked()
}

// Wait blocks until every request and playback started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) lookup(text string) (*Audio, bool) {
	v, ok := s.cache.Get(text)
	if !ok {
		return nil, false
	}
	return v.(*Audio), true
}

// fetch resolves text through the cache, joining any request already in
// flight for the same text. The request is detached from ctx cancellation.
func (s *Service) fetch(ctx context.Context, text string) (*Audio, error) {
	v, err, _ := s.group.Do(text, func() (interface{}, error) {
		if audio, ok := s.lookup(text); ok {
			return audio, nil
		}
		metrics.SpeechCacheMisses.Inc()

		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.RequestTimeout)
		defer cancel()

		start := time.Now()
		audio, err := s.synth.Synthesize(reqCtx, text)
		metrics.SpeechRequestDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SpeechRequests.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.SpeechRequests.WithLabelValues("ok").Inc()

		s.cache.Set(text, audio, gocache.NoExpiration)
		s.logger.Debug().Str("text", text).Int("bytes", len(audio.Data)).Msg("Cached synthesized audio")
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Audio), nil
}

func (s *Service) startPlaybackLocked(ctx context.Context, audio *Audio) {
	s.stopPlaybackLocked()

	playCtx, cancel := context.WithCancel(ctx)
	s.playSeq++
	seq := s.playSeq
	s.playCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := s.player.Play(playCtx, audio); err != nil && playCtx.Err() == nil {
			s.logger.Warn().Err(err).Str("text", audio.Text).Msg("Playback failed")
		}

		s.mu.Lock()
		if s.playSeq == seq {
			s.playCancel = nil
		}
		s.mu.Unlock()
	}()
}

func (s *Service) stopPlaybackLocked() {
	if s.playCancel != nil {
		s.playCancel()
		s.playCancel = nil
	}
}
