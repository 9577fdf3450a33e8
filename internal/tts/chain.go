// Package tts synthesizes assistant replies through a ranked chain of
// providers and hands the audio to a playback sink.
package tts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lexiqai/voice-assistant/internal/resilience"
)

// Capability is the name the synthesis chain reports in errors and metrics
const Capability = "synthesis"

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 30 * time.Second

// ErrEmptyAudio is the failure of a provider that produced no audio
var ErrEmptyAudio = errors.New("provider returned no audio")

// Chain synthesizes with the first healthy provider
type Chain struct {
	chain   *resilience.Chain[Synthesizer]
	timeout time.Duration
}

// NewChain creates a synthesis chain. A non-positive timeout falls back to
// DefaultTimeout.
func NewChain(timeout time.Duration, entries ...resilience.Entry[Synthesizer]) (*Chain, error) {
	c, err := resilience.NewChain(Capability, entries...)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain{chain: c, timeout: timeout}, nil
}

// Synthesize converts text to audio. Blank text is rejected without calling
// any provider.
func (c *Chain) Synthesize(ctx context.Context, text string) (*Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, resilience.InvalidRequest(Capability, "blank text")
	}

	start := time.Now()
	res, err := resilience.Invoke(ctx, c.chain, c.timeout, func(ctx context.Context, s Synthesizer) (*Audio, error) {
		audio, err := s.Synthesize(ctx, text)
		if err == nil && (audio == nil || len(audio.Data) == 0) {
			return nil, ErrEmptyAudio
		}
		return audio, err
	})
	if err != nil {
		return nil, err
	}

	return &Speech{
		Audio:    res.Value,
		Provider: res.Provider,
		Attempts: len(res.Attempts),
		Latency:  time.Since(start),
	}, nil
}

// Healthy reports whether any provider is still alive
func (c *Chain) Healthy() bool {
	return c.chain.Healthy()
}

// Records returns the provider health snapshot
func (c *Chain) Records() []resilience.ProviderRecord {
	return c.chain.Records()
}

// Reset marks every provider alive again
func (c *Chain) Reset() {
	c.chain.Reset()
}
