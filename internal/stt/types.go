package stt

import (
	"context"
	"time"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
)

// Transcript represents a transcription of one utterance
type Transcript struct {
	// Text is the transcribed text, trimmed of surrounding whitespace
	Text string

	// UtteranceID identifies the utterance that was transcribed
	UtteranceID string

	// Provider is the name of the provider that produced the text
	Provider string

	// Attempts is the number of providers called, the last one included
	Attempts int

	// Latency is the wall time spent in the provider chain
	Latency time.Duration
}

// Blank reports whether the transcript carries no words
func (t *Transcript) Blank() bool {
	return t == nil || t.Text == ""
}

// Transcriber converts a finished utterance into text.
// Implementations must honour ctx and return promptly when it is done.
type Transcriber interface {
	Transcribe(ctx context.Context, utt *endpoint.Utterance) (string, error)
}

// TranscriberFunc adapts a plain function to Transcriber
type TranscriberFunc func(ctx context.Context, utt *endpoint.Utterance) (string, error)

// Transcribe calls f(ctx, utt)
func (f TranscriberFunc) Transcribe(ctx context.Context, utt *endpoint.Utterance) (string, error) {
	return f(ctx, utt)
}
