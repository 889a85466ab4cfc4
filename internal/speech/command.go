package speech

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const stopGrace = 1200 * time.Millisecond

// CommandPlayer plays audio by piping it into an external command such as
// "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	command string
	args    []string
}

// NewCommandPlayer creates a player from argv. An empty argv uses ffplay.
func NewCommandPlayer(argv []string) *CommandPlayer {
	if len(argv) == 0 {
		argv = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"}
	}
	return &CommandPlayer{command: argv[0], args: argv[1:]}
}

// Play blocks until the command exits. Cancelling ctx interrupts the command
// and kills it if it has not exited after a short grace period.
func (p *CommandPlayer) Play(ctx context.Context, audio *Audio) error {
	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(audio.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGrace

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// CommandVoice speaks through a local TTS command compatible with espeak.
type CommandVoice struct {
	command string
	logger  zerolog.Logger
}

// NewCommandVoice creates the local fallback voice.
func NewCommandVoice(command string, logger zerolog.Logger) *CommandVoice {
	if command == "" {
		command = "espeak"
	}
	return &CommandVoice{
		command: command,
		logger:  logger.With().Str("component", "voice").Logger(),
	}
}

// Say starts the voice command and returns without waiting for it.
func (v *CommandVoice) Say(_ context.Context, text string, params VoiceParams) {
	cmd := exec.Command(v.command, voiceArgs(text, params)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		v.logger.Warn().Err(err).Str("command", v.command).Msg("Failed to start local voice")
		return
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			v.logger.Warn().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).Msg("Local voice failed")
		}
	}()
}

// voiceArgs maps voice params onto espeak flags. Pitch and rate are relative
// to espeak's defaults of 50 and 175 words per minute.
func voiceArgs(text string, params VoiceParams) []string {
	args := []string{}
	if params.Pitch > 0 {
		pitch := int(math.Round(50 * params.Pitch))
		if pitch > 99 {
			pitch = 99
		}
		args = append(args, "-p", strconv.Itoa(pitch))
	}
	if params.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(int(math.Round(175*params.Rate))))
	}
	if params.Language != "" {
		args = append(args, "-v", strings.ToLower(params.Language))
	}
	return append(args, text)
}
