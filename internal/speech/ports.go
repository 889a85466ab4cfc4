// Package speech resolves text to playable audio. Synthesized audio is cached
// per exact text for the life of the process; failed requests fall back to a
// local voice.
package speech

import "context"

// Audio is a synthesized clip. Cached clips are never mutated.
type Audio struct {
	Text        string
	ContentType string
	Data        []byte
}

// Synthesizer turns text into audio, usually over the network.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Player plays one clip. Play blocks until the clip ends or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, audio *Audio) error
}

// VoiceParams tune the local fallback voice.
type VoiceParams struct {
	Pitch    float64
	Rate     float64
	Language string
}

// LocalVoice speaks text on the device. Say must not block on playback.
type LocalVoice interface {
	Say(ctx context.Context, text string, params VoiceParams)
}
