package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// Transcriber sends the utterance as a WAV file on stdin and reads the
// transcript from stdout.
type Transcriber struct {
	spec Spec
}

// NewTranscriber creates a command transcriber
func NewTranscriber(spec Spec) *Transcriber {
	return &Transcriber{spec: spec}
}

// Transcribe runs the command on utt
func (t *Transcriber) Transcribe(ctx context.Context, utt *endpoint.Utterance) (string, error) {
	wav, err := utt.WAV()
	if err != nil {
		return "", fmt.Errorf("failed to encode utterance: %w", err)
	}
	out, err := run(ctx, t.spec, wav,
		"ASSISTANT_SAMPLE_RATE="+strconv.Itoa(utt.SampleRate),
		"ASSISTANT_UTTERANCE_ID="+utt.ID,
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Generator sends the system prompt and user text on stdin, separated by a
// blank line, and reads the reply from stdout. Sampling parameters are passed
// in the environment.
type Generator struct {
	spec Spec
}

// NewGenerator creates a command generator
func NewGenerator(spec Spec) *Generator {
	return &Generator{spec: spec}
}

// Generate runs the command for req
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	input := req.Text
	if req.SystemPrompt != "" {
		input = req.SystemPrompt + "\n\n" + req.Text
	}
	out, err := run(ctx, g.spec, []byte(input),
		"ASSISTANT_TEMPERATURE="+strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		"ASSISTANT_MAX_TOKENS="+strconv.Itoa(req.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Synthesizer sends text on stdin and reads encoded audio from stdout
type Synthesizer struct {
	spec   Spec
	format string
}

// NewSynthesizer creates a command synthesizer producing audio in format
func NewSynthesizer(spec Spec, format string) *Synthesizer {
	if format == "" {
		format = "wav"
	}
	return &Synthesizer{spec: spec, format: format}
}

// Synthesize runs the command for text
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	out, err := run(ctx, s.spec, []byte(text), "ASSISTANT_AUDIO_FORMAT="+s.format)
	if err != nil {
		return nil, err
	}
	return &tts.Audio{Data: out, Format: s.format}, nil
}

// Player is a sink that pipes audio into a player command
type Player struct {
	spec Spec
}

// NewPlayer creates a player sink from a "program arg..." command line
func NewPlayer(cmdline string) (*Player, error) {
	spec, err := ParseSpec("player=" + cmdline)
	if err != nil {
		return nil, err
	}
	return &Player{spec: spec}, nil
}

// Play runs the player with audio on stdin
func (p *Player) Play(ctx context.Context, audio *tts.Audio) error {
	if audio == nil || len(audio.Data) == 0 {
		return tts.ErrEmptyAudio
	}
	_, err := run(ctx, p.spec, audio.Data, "ASSISTANT_AUDIO_FORMAT="+audio.Format)
	return err
}
