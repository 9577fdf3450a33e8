package main

import (
	"context"
	"testing"

	"github.com/lexiqai/voice-assistant/internal/config"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AudioOutputDir: t.TempDir(),
		SampleRate:     16000,
		FrameSize:      512,
		PreRollMs:      800,
		TriggerRatio:   0.8,
		ReleaseRatio:   0.9,
		STTProviders:   []string{"whisper=whisper.sh", "cloud=cloud-stt.sh"},
		LLMProviders:   []string{"groq=groq.sh"},
		TTSFormat:      "mp3",
		STTTimeout:     30,
		LLMTimeout:     60,
		TTSTimeout:     30,
	}
}

func TestBuildChains_TextOnly(t *testing.T) {
	c, err := buildChains(testConfig(t))
	if err != nil {
		t.Fatalf("buildChains failed: %v", err)
	}
	if c.tts != nil || c.sink != nil {
		t.Error("Expected no speech without TTS providers")
	}
	if records := c.stt.Records(); len(records) != 2 || records[0].Name != "whisper" {
		t.Errorf("Unexpected STT chain %+v", records)
	}
	if len(c.readinessChecks()) != 2 {
		t.Errorf("Expected 2 readiness checks, got %d", len(c.readinessChecks()))
	}
}

func TestBuildChains_WithSpeech(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTSProviders = []string{"openai=tts.sh"}

	c, err := buildChains(cfg)
	if err != nil {
		t.Fatalf("buildChains failed: %v", err)
	}
	if c.tts == nil {
		t.Fatal("Expected a TTS chain")
	}
	if _, ok := c.sink.(*tts.FileSink); !ok {
		t.Errorf("Expected a file sink without a player command, got %T", c.sink)
	}
	if len(c.readinessChecks()) != 3 {
		t.Errorf("Expected 3 readiness checks, got %d", len(c.readinessChecks()))
	}

	for _, check := range c.readinessChecks() {
		healthy, err := check.Check(context.Background())
		if !healthy || err != nil {
			t.Errorf("Expected %s to be ready, got %v (%v)", check.Name, healthy, err)
		}
	}
}

func TestBuildChains_InvalidSpec(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProviders = []string{"missing-program="}

	if _, err := buildChains(cfg); err == nil {
		t.Error("Expected error for invalid provider spec")
	}
}

func TestOpenInput(t *testing.T) {
	if _, err := openInput("/definitely/not/here.pcm"); err == nil {
		t.Error("Expected error for missing input file")
	}
	r, err := openInput("-")
	if err != nil {
		t.Fatalf("Expected stdin, got %v", err)
	}
	r.Close()
}
