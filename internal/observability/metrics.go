package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Endpointer metrics
	framesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_frames_total",
		Help: "Total number of audio frames classified by the endpointer",
	})

	oracleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_oracle_failures_total",
		Help: "Frames treated as unvoiced because the speech oracle failed",
	})

	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_utterances_total",
		Help: "Total number of utterances emitted by the endpointer",
	}, []string{"kind"}) // kind: "complete" or "truncated"

	utteranceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistant_utterance_duration_seconds",
		Help:    "Audio duration of emitted utterances in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// Capability chain metrics
	chainAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_chain_attempts_total",
		Help: "Provider attempts made by capability chains",
	}, []string{"capability", "provider", "status"})

	chainAttemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_chain_attempt_latency_seconds",
		Help:    "Latency of a single provider attempt in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"capability"})

	providerHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "assistant_provider_healthy",
		Help: "Provider health (1=alive, 0=failed for the rest of the process)",
	}, []string{"capability", "provider"})

	chainExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_chain_exhausted_total",
		Help: "Invocations that found no provider left in the chain",
	}, []string{"capability"})

	// Conversation metrics
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_turns_total",
		Help: "Conversation turns by outcome",
	}, []string{"outcome"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_stage_latency_seconds",
		Help:    "Per-turn stage latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistant_turn_duration_seconds",
		Help:    "Duration of a conversation turn after the utterance ended",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// RecordFrame counts one classified frame
func RecordFrame() {
	framesProcessed.Inc()
}

// RecordOracleFailure counts a frame degraded to unvoiced
func RecordOracleFailure() {
	oracleFailures.Inc()
}

// RecordUtterance records an emitted utterance
func RecordUtterance(truncated bool, duration time.Duration) {
	kind := "complete"
	if truncated {
		kind = "truncated"
	}
	utterancesTotal.WithLabelValues(kind).Inc()
	utteranceDuration.Observe(duration.Seconds())
}

// RecordAttempt records the outcome of one provider attempt
func RecordAttempt(capability, provider string, success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	chainAttempts.WithLabelValues(capability, provider, status).Inc()
	chainAttemptLatency.WithLabelValues(capability).Observe(latency.Seconds())
}

// SetProviderHealth updates the provider health gauge
func SetProviderHealth(capability, provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	providerHealthy.WithLabelValues(capability, provider).Set(value)
}

// RecordChainExhausted counts an invocation with no provider left
func RecordChainExhausted(capability string) {
	chainExhausted.WithLabelValues(capability).Inc()
}

// Metrics tracks stage timings for a single conversation turn
type Metrics struct {
	turnID     string
	startTime  time.Time
	stageStart map[string]time.Time
	mu         sync.Mutex
}

// NewTurnMetrics creates a new metrics tracker for a turn
func NewTurnMetrics(turnID string) *Metrics {
	return &Metrics{
		turnID:     turnID,
		startTime:  time.Now(),
		stageStart: make(map[string]time.Time),
	}
}

// RecordStageStart records the start of a pipeline stage (stt, llm, tts, playback)
func (m *Metrics) RecordStageStart(stage string) {
	m.mu.Lock()
	m.stageStart[stage] = time.Now()
	m.mu.Unlock()
}

// RecordStageEnd records the end of a pipeline stage
func (m *Metrics) RecordStageEnd(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if start, ok := m.stageStart[stage]; ok {
		stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		delete(m.stageStart, stage)
	}
}

// RecordTurnEnd records the end of the turn with its outcome
func (m *Metrics) RecordTurnEnd(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDuration.Observe(time.Since(m.startTime).Seconds())
}
