// Package stt transcribes utterances through a ranked chain of providers.
package stt

import (
	"context"
	"strings"
	"time"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/resilience"
)

// Capability is the name the transcription chain reports in errors and metrics
const Capability = "transcription"

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 30 * time.Second

// Chain transcribes with the first healthy provider. Providers that fail are
// dropped for the rest of the chain's life.
type Chain struct {
	chain   *resilience.Chain[Transcriber]
	timeout time.Duration
}

// NewChain creates a transcription chain. A non-positive timeout falls back
// to DefaultTimeout.
func NewChain(timeout time.Duration, entries ...resilience.Entry[Transcriber]) (*Chain, error) {
	c, err := resilience.NewChain(Capability, entries...)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain{chain: c, timeout: timeout}, nil
}

// Transcribe converts utt into text. An empty utterance is rejected without
// calling any provider.
func (c *Chain) Transcribe(ctx context.Context, utt *endpoint.Utterance) (*Transcript, error) {
	if utt.Empty() {
		return nil, resilience.InvalidRequest(Capability, "empty utterance")
	}

	start := time.Now()
	res, err := resilience.Invoke(ctx, c.chain, c.timeout, func(ctx context.Context, t Transcriber) (string, error) {
		return t.Transcribe(ctx, utt)
	})
	if err != nil {
		return nil, err
	}

	return &Transcript{
		Text:        strings.TrimSpace(res.Value),
		UtteranceID: utt.ID,
		Provider:    res.Provider,
		Attempts:    len(res.Attempts),
		Latency:     time.Since(start),
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
