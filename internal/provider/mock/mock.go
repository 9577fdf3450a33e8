// Package mock provides scripted capability providers for tests and demos.
// Each provider plays back a list of steps and records what it was asked.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// Step is one scripted provider response
type Step struct {
	Text  string        // Returned text, or audio bytes for synthesizers
	Err   error         // Returned error, takes precedence over Text
	Delay time.Duration // Wait before answering, cut short by ctx
	Hang  bool          // Ignore ctx and never answer
}

// Reply is a successful step
func Reply(text string) Step {
	return Step{Text: text}
}

// Fail is a failing step
func Fail(err error) Step {
	return Step{Err: err}
}

// Hang is a step that never returns
func Hang() Step {
	return Step{Hang: true}
}

// script hands out steps in order; the last step repeats once the list is
// exhausted.
type script struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

func (s *script) next() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.steps) == 0 {
		return Step{}
	}
	i := s.calls - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i]
}

// Calls returns how many times the provider was invoked
func (s *script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// play waits out the step and returns its outcome
func play(ctx context.Context, step Step) (string, error) {
	if step.Hang {
		select {}
	}
	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// Transcriber is a scripted transcription provider
type Transcriber struct {
	script
	mu         sync.Mutex
	utterances []string
}

// NewTranscriber creates a transcriber playing back steps
func NewTranscriber(steps ...Step) *Transcriber {
	return &Transcriber{script: script{steps: steps}}
}

// Transcribe records the utterance ID and plays the next step
func (t *Transcriber) Transcribe(ctx context.Context, utt *endpoint.Utterance) (string, error) {
	t.mu.Lock()
	t.utterances = append(t.utterances, utt.ID)
	t.mu.Unlock()
	return play(ctx, t.next())
}

// Utterances returns the IDs of every utterance received
func (t *Transcriber) Utterances() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.utterances...)
}

// Generator is a scripted reasoning provider
type Generator struct {
	script
	mu       sync.Mutex
	requests []llm.Request
}

// NewGenerator creates a generator playing back steps
func NewGenerator(steps ...Step) *Generator {
	return &Generator{script: script{steps: steps}}
}

// Generate records the request and plays the next step
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return play(ctx, g.next())
}

// Requests returns every request received
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}

// Synthesizer is a scripted synthesis provider. The step text becomes the
// audio payload.
type Synthesizer struct {
	script
	Format string

	mu    sync.Mutex
	texts []string
}

// NewSynthesizer creates a synthesizer playing back steps
func NewSynthesizer(steps ...Step) *Synthesizer {
	return &Synthesizer{script: script{steps: steps}, Format: "wav"}
}

// Synthesize records the text and plays the next step
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	out, err := play(ctx, s.next())
	if err != nil {
		return nil, err
	}
	return &tts.Audio{Data: []byte(out), Format: s.Format}, nil
}

// Texts returns every text received
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Sink records played audio. A non-nil Err makes every Play fail.
type Sink struct {
	Err error

	mu     sync.Mutex
	played []*tts.Audio
}

// Play records audio or returns Err
func (s *Sink) Play(ctx context.Context, audio *tts.Audio) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, audio)
	return nil
}

// Played returns every audio clip played
func (s *Sink) Played() []*tts.Audio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*tts.Audio(nil), s.played...)
}
