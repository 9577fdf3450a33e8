package tts

import (
	"context"
	"time"
)

// Audio is synthesized speech ready for playback
type Audio struct {
	Data       []byte // Encoded audio as produced by the provider
	Format     string // Container or codec, e.g. "wav" or "mp3"
	SampleRate int    // Sample rate in Hz, 0 when unknown
}

// Speech is the outcome of synthesizing one reply
type Speech struct {
	Audio *Audio

	// Provider is the name of the provider that produced the audio
	Provider string

	// Attempts is the number of providers called, the last one included
	Attempts int

	// Latency is the wall time spent in the provider chain
	Latency time.Duration
}

// Synthesizer converts text to audio.
// Implementations must honour ctx and return promptly when it is done.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// SynthesizerFunc adapts a plain function to Synthesizer
type SynthesizerFunc func(ctx context.Context, text string) (*Audio, error)

// Synthesize calls f(ctx, text)
func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) (*Audio, error) {
	return f(ctx, text)
}

// Sink plays synthesized audio to the user
type Sink interface {
	Play(ctx context.Context, audio *Audio) error
}
