package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/llm"
)

// Config holds all configuration for the voice assistant
type Config struct {
	// Server configuration (health, readiness and metrics)
	Port string `envconfig:"PORT" default:"8080"`

	// Audio input: a file of raw little-endian 16-bit mono PCM, or "-" for stdin
	AudioInput string `envconfig:"AUDIO_INPUT" default:"-"`

	// Directory that receives the spoken replies when no player is configured
	AudioOutputDir string `envconfig:"AUDIO_OUTPUT_DIR" default:"./out"`

	// Endpointing configuration
	SampleRate         int     `envconfig:"SAMPLE_RATE" default:"16000"`          // Samples per second
	FrameSize          int     `envconfig:"FRAME_SIZE" default:"512"`             // Samples per frame
	PreRollMs          int     `envconfig:"PRE_ROLL_MS" default:"800"`            // Pre-roll and hang-over window length
	TriggerRatio       float64 `envconfig:"TRIGGER_RATIO" default:"0.8"`          // Voiced share that starts recording
	ReleaseRatio       float64 `envconfig:"RELEASE_RATIO" default:"0.9"`          // Unvoiced share that stops recording
	SpeechThreshold    float64 `envconfig:"SPEECH_THRESHOLD" default:"0.5"`       // Oracle probability counted as speech
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy scoring 0.5

	// Provider chains, comma separated "name=program arg..." in rank order
	STTProviders []string `envconfig:"STT_PROVIDERS"`
	LLMProviders []string `envconfig:"LLM_PROVIDERS"`
	TTSProviders []string `envconfig:"TTS_PROVIDERS"`

	TTSFormat     string `envconfig:"TTS_FORMAT" default:"wav"` // Audio format produced by the TTS commands
	PlayerCommand string `envconfig:"PLAYER_COMMAND"`           // Optional "program arg..." fed audio on stdin

	// Per-call provider timeouts in seconds
	STTTimeout int `envconfig:"STT_TIMEOUT" default:"30"`
	LLMTimeout int `envconfig:"LLM_TIMEOUT" default:"60"`
	TTSTimeout int `envconfig:"TTS_TIMEOUT" default:"30"`

	// Reasoning parameters; an empty prompt selects the built-in persona
	SystemPrompt   string  `envconfig:"SYSTEM_PROMPT"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"500"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.STTProviders = compact(cfg.STTProviders)
	cfg.LLMProviders = compact(cfg.LLMProviders)
	cfg.TTSProviders = compact(cfg.TTSProviders)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields envconfig cannot
func (c *Config) Validate() error {
	if len(c.STTProviders) == 0 {
		return fmt.Errorf("STT_PROVIDERS is required")
	}
	if len(c.LLMProviders) == 0 {
		return fmt.Errorf("LLM_PROVIDERS is required")
	}
	if c.AudioInput == "" {
		return fmt.Errorf("AUDIO_INPUT is required")
	}
	if c.STTTimeout <= 0 || c.LLMTimeout <= 0 || c.TTSTimeout <= 0 {
		return fmt.Errorf("provider timeouts must be positive")
	}
	if err := c.Endpoint().Validate(); err != nil {
		return fmt.Errorf("invalid endpointing config: %w", err)
	}
	return nil
}

// Endpoint returns the endpointing parameters
func (c *Config) Endpoint() endpoint.Config {
	return endpoint.Config{
		SampleRate:      c.SampleRate,
		FrameSize:       c.FrameSize,
		PreRollMs:       c.PreRollMs,
		TriggerRatio:    c.TriggerRatio,
		ReleaseRatio:    c.ReleaseRatio,
		SpeechThreshold: c.SpeechThreshold,
	}
}

// LLMOptions returns the reasoning chain options
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		SystemPrompt: c.SystemPrompt,
		Temperature:  c.LLMTemperature,
		MaxTokens:    c.LLMMaxTokens,
		Timeout:      seconds(c.LLMTimeout),
	}
}

// STTCallTimeout returns the per-call transcription timeout
func (c *Config) STTCallTimeout() time.Duration {
	return seconds(c.STTTimeout)
}

// TTSCallTimeout returns the per-call synthesis timeout
func (c *Config) TTSCallTimeout() time.Duration {
	return seconds(c.TTSTimeout)
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// compact drops blank list items left by stray commas
func compact(items []string) []string {
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
