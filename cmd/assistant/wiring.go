package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lexiqai/voice-assistant/internal/config"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/provider/command"
	"github.com/lexiqai/voice-assistant/internal/resilience"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// chains holds the provider chains built from configuration
type chains struct {
	stt  *stt.Chain
	llm  *llm.Chain
	tts  *tts.Chain // nil when no synthesis provider is configured
	sink tts.Sink
}

func buildChains(cfg *config.Config) (*chains, error) {
	sttSpecs, err := command.ParseSpecs(cfg.STTProviders)
	if err != nil {
		return nil, fmt.Errorf("STT_PROVIDERS: %w", err)
	}
	llmSpecs, err := command.ParseSpecs(cfg.LLMProviders)
	if err != nil {
		return nil, fmt.Errorf("LLM_PROVIDERS: %w", err)
	}
	ttsSpecs, err := command.ParseSpecs(cfg.TTSProviders)
	if err != nil {
		return nil, fmt.Errorf("TTS_PROVIDERS: %w", err)
	}

	c := &chains{}
	c.stt, err = stt.NewChain(cfg.STTCallTimeout(), command.Entries(sttSpecs, func(s command.Spec) stt.Transcriber {
		return command.NewTranscriber(s)
	})...)
	if err != nil {
		return nil, err
	}
	c.llm, err = llm.NewChain(cfg.LLMOptions(), command.Entries(llmSpecs, func(s command.Spec) llm.Generator {
		return command.NewGenerator(s)
	})...)
	if err != nil {
		return nil, err
	}

	if len(ttsSpecs) == 0 {
		return c, nil
	}
	c.tts, err = tts.NewChain(cfg.TTSCallTimeout(), command.Entries(ttsSpecs, func(s command.Spec) tts.Synthesizer {
		return command.NewSynthesizer(s, cfg.TTSFormat)
	})...)
	if err != nil {
		return nil, err
	}

	if cfg.PlayerCommand != "" {
		c.sink, err = command.NewPlayer(cfg.PlayerCommand)
	} else {
		c.sink, err = tts.NewFileSink(cfg.AudioOutputDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create audio sink: %w", err)
	}
	return c, nil
}

// readinessChecks reports a chain as unhealthy once every provider failed
func (c *chains) readinessChecks() []observability.DependencyCheck {
	checks := []observability.DependencyCheck{
		chainCheck(stt.Capability, c.stt.Healthy, c.stt.Records),
		chainCheck(llm.Capability, c.llm.Healthy, c.llm.Records),
	}
	if c.tts != nil {
		checks = append(checks, chainCheck(tts.Capability, c.tts.Healthy, c.tts.Records))
	}
	return checks
}

func chainCheck(name string, healthy func() bool, records func() []resilience.ProviderRecord) observability.DependencyCheck {
	return observability.DependencyCheck{
		Name: name,
		Check: func(ctx context.Context) (bool, error) {
			if healthy() {
				return true, nil
			}
			var failed []string
			for _, r := range records() {
				failed = append(failed, r.Name)
			}
			return false, fmt.Errorf("all providers failed: %s", strings.Join(failed, ", "))
		},
	}
}

// openInput opens the PCM input; "-" is stdin
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio input: %w", err)
	}
	return f, nil
}
