// Package llm generates assistant replies through a ranked chain of
// reasoning providers.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lexiqai/voice-assistant/internal/resilience"
)

// Capability is the name the reasoning chain reports in errors and metrics
const Capability = "reasoning"

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 60 * time.Second

// ErrEmptyReply is the failure of a provider that answered with nothing
var ErrEmptyReply = errors.New("provider returned an empty reply")

// Options are the generation parameters applied to every request
type Options struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// DefaultOptions returns the default persona and parameters
func DefaultOptions() Options {
	return Options{
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
		Timeout:      DefaultTimeout,
	}
}

// Chain generates with the first healthy provider
type Chain struct {
	chain *resilience.Chain[Generator]
	opts  Options
}

// NewChain creates a reasoning chain. Zero-valued options fall back to the
// defaults.
func NewChain(opts Options, entries ...resilience.Entry[Generator]) (*Chain, error) {
	c, err := resilience.NewChain(Capability, entries...)
	if err != nil {
		return nil, err
	}

	def := DefaultOptions()
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = def.SystemPrompt
	}
	if opts.Temperature <= 0 {
		opts.Temperature = def.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Chain{chain: c, opts: opts}, nil
}

// Generate answers text with the configured persona. Blank text is rejected
// without calling any provider.
func (c *Chain) Generate(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, resilience.InvalidRequest(Capability, "blank prompt")
	}

	req := Request{
		SystemPrompt: c.opts.SystemPrompt,
		Text:         text,
		Temperature:  c.opts.Temperature,
		MaxTokens:    c.opts.MaxTokens,
	}

	start := time.Now()
	res, err := resilience.Invoke(ctx, c.chain, c.opts.Timeout, func(ctx context.Context, g Generator) (string, error) {
		out, err := g.Generate(ctx, req)
		if err == nil && strings.TrimSpace(out) == "" {
			return "", ErrEmptyReply
		}
		return out, err
	})
	if err != nil {
		return nil, err
	}

	return &Reply{
		Text:     strings.TrimSpace(res.Value),
		Provider: res.Provider,
		Attempts: len(res.Attempts),
		Latency:  time.Since(start),
	}, nil
}

// Options returns the generation parameters in effect
func (c *Chain) Options() Options {
	return c.opts
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
