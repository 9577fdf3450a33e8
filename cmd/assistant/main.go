package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/config"
	"github.com/lexiqai/voice-assistant/internal/conversation"
	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/observability"
)

// stopTimeout bounds how long shutdown waits for the conversation loop
const stopTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("audio_input", cfg.AudioInput).
		Strs("stt_providers", cfg.STTProviders).
		Strs("llm_providers", cfg.LLMProviders).
		Strs("tts_providers", cfg.TTSProviders).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice assistant starting")

	providers, err := buildChains(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build provider chains")
	}

	input, err := openInput(cfg.AudioInput)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open audio input")
	}
	defer input.Close()

	source, err := audio.NewPCMSource(input, cfg.FrameSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create frame source")
	}

	endpointer, err := endpoint.NewEndpointer(cfg.Endpoint(), source, audio.NewEnergyOracle(cfg.VADEnergyThreshold))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create endpointer")
	}

	sessionLogger := observability.WithCorrelationID(observability.NewCorrelationID()).
		With().
		Str("component", "conversation").
		Logger()
	opts := []conversation.Option{
		conversation.WithRenderer(conversation.NewTextRenderer(os.Stdout)),
		conversation.WithLogger(sessionLogger),
	}
	if providers.tts != nil {
		opts = append(opts, conversation.WithSpeech(providers.tts, providers.sink))
	} else {
		logger.Warn().Msg("No TTS providers configured, replies will be text only")
	}

	session, err := conversation.NewSession(endpointer, providers.stt, providers.llm, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create conversation session")
	}

	// Create HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(providers.readinessChecks()...))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Run the conversation in the background so signals stay responsive
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	turns, done := session.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
loop:
	for {
		select {
		case turn, ok := <-turns:
			if !ok {
				runErr = <-done
				break loop
			}
			logger.Debug().
				Str("turn_id", turn.ID).
				Str("outcome", string(turn.Outcome)).
				Dur("duration", turn.Duration).
				Msg("Turn delivered")
		case <-quit:
			logger.Info().Msg("Shutdown signal received, stopping conversation...")
			cancel()
			// A blocked stdin read only returns when more audio arrives
			select {
			case runErr = <-done:
			case <-time.After(stopTimeout):
				logger.Warn().Dur("timeout", stopTimeout).Msg("Conversation did not stop in time")
			}
			break loop
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error().Err(runErr).Msg("Conversation stopped with error")
	}

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().
		Int("turns", len(session.History())).
		Msg("Voice assistant exited gracefully")
}
