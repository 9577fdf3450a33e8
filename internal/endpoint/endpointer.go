// Package endpoint turns a continuous stream of audio frames into discrete
// utterances.
//
// An Endpointer keeps a pre-roll window of the most recent frames while idle.
// Once the voiced share of that window exceeds the trigger ratio it starts
// recording, keeping the pre-roll audio so the speech onset is not lost. While
// recording, a trailing window of the same size tracks silence; once its
// unvoiced share exceeds the release ratio the utterance is handed to the
// caller and the Endpointer goes back to idle.
//
// An Endpointer is driven by a single synchronous pull loop and is not safe
// for concurrent use.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/observability"
)

// ErrEndOfStream is returned by Listen when the frame source is exhausted
// and no utterance is pending. It is a normal terminal signal.
var ErrEndOfStream = errors.New("end of audio stream")

// State is the endpointer state
type State int

const (
	StateIdle      State = iota // Waiting for speech, filling the pre-roll window
	StateRecording              // Speech confirmed, collecting frames
	StateTerminal               // Utterance complete, about to be handed over
)

// String returns the human-readable name of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Option configures an Endpointer
type Option func(*Endpointer)

// WithLogger sets the logger used for state changes and oracle failures
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Endpointer) {
		e.logger = logger
	}
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(hook func(from, to State)) Option {
	return func(e *Endpointer) {
		e.hook = hook
	}
}

// Endpointer detects utterance boundaries in a frame stream
type Endpointer struct {
	cfg    Config
	src    audio.FrameSource
	oracle audio.SpeechOracle

	// window is the pre-roll window while idle and the hang-over window
	// while recording.
	window    *audio.RingWindow
	state     State
	current   *Utterance
	exhausted bool

	logger zerolog.Logger
	hook   func(from, to State)
}

// NewEndpointer validates cfg and creates an Endpointer reading from src
func NewEndpointer(cfg Config, src audio.FrameSource, oracle audio.SpeechOracle, opts ...Option) (*Endpointer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: frame source is required", ErrInvalidConfig)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: speech oracle is required", ErrInvalidConfig)
	}

	e := &Endpointer{
		cfg:    cfg,
		src:    src,
		oracle: oracle,
		window: audio.NewRingWindow(cfg.WindowCapacity()),
		state:  StateIdle,
		logger: observability.WithComponent("endpointer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Listen is a one-shot helper that returns the first utterance of src
func Listen(ctx context.Context, src audio.FrameSource, oracle audio.SpeechOracle, cfg Config) (*Utterance, error) {
	e, err := NewEndpointer(cfg, src, oracle)
	if err != nil {
		return nil, err
	}
	return e.Listen(ctx)
}

// Listen pulls frames until an utterance is complete or the source is
// exhausted. It returns ErrEndOfStream when the source ended with nothing
// recorded. Cancellation is checked before every frame; a cancelled call
// discards any partial recording and returns the context error.
func (e *Endpointer) Listen(ctx context.Context) (*Utterance, error) {
	if e.exhausted {
		return nil, ErrEndOfStream
	}

	for {
		if err := ctx.Err(); err != nil {
			e.reset()
			return nil, fmt.Errorf("listen cancelled: %w", err)
		}

		frame, err := e.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.exhausted = true
				return e.finishStream()
			}
			e.reset()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("listen cancelled: %w", ctxErr)
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		if utt := e.Step(frame); utt != nil {
			return utt, nil
		}
	}
}

// Step feeds a single frame through the state machine and returns the
// finished utterance when this frame completed one. It lets callers that
// receive frames by push drive the endpointer without a FrameSource.
func (e *Endpointer) Step(frame audio.Frame) *Utterance {
	voiced := e.classify(frame)
	observability.RecordFrame()

	switch e.state {
	case StateIdle:
		e.window.Push(frame, voiced)
		if e.window.VoicedFraction() > e.cfg.TriggerRatio {
			e.startRecording()
		}

	case StateRecording:
		e.current.Frames = append(e.current.Frames, frame)
		e.window.Push(frame, voiced)
		if e.window.UnvoicedFraction() > e.cfg.ReleaseRatio {
			e.transition(StateTerminal)
			return e.finalize()
		}
	}

	return nil
}

// State returns the current state
func (e *Endpointer) State() State {
	return e.state
}

// Config returns the endpointer configuration
func (e *Endpointer) Config() Config {
	return e.cfg
}

// classify asks the oracle about one frame. An oracle failure degrades the
// frame to unvoiced instead of aborting the recording.
func (e *Endpointer) classify(frame audio.Frame) bool {
	p, err := e.oracle.SpeechProbability(frame)
	if err != nil {
		observability.RecordOracleFailure()
		e.logger.Warn().
			Err(err).
			Str("state", e.state.String()).
			Msg("Speech oracle failed, treating frame as unvoiced")
		return false
	}
	return p >= e.cfg.SpeechThreshold
}

func (e *Endpointer) startRecording() {
	e.current = newUtterance(e.cfg.SampleRate)
	e.current.Frames = e.window.Frames()
	e.current.PreRoll = len(e.current.Frames)
	e.window.Clear()
	e.transition(StateRecording)

	e.logger.Debug().
		Str("utterance_id", e.current.ID).
		Int("pre_roll_frames", e.current.PreRoll).
		Msg("Speech detected, recording")
}

// finalize hands the current utterance over and returns to idle
func (e *Endpointer) finalize() *Utterance {
	utt := e.current
	e.current = nil
	e.window.Clear()
	e.transition(StateIdle)

	observability.RecordUtterance(utt.Truncated, utt.Duration())
	e.logger.Info().
		Str("utterance_id", utt.ID).
		Int("frames", len(utt.Frames)).
		Dur("duration", utt.Duration()).
		Bool("truncated", utt.Truncated).
		Msg("Utterance complete")
	return utt
}

// finishStream handles source exhaustion. A recording in progress is
// returned as a truncated utterance; otherwise there is nothing to yield.
func (e *Endpointer) finishStream() (*Utterance, error) {
	if e.state == StateRecording && e.current != nil && len(e.current.Frames) > 0 {
		e.current.Truncated = true
		e.transition(StateTerminal)
		return e.finalize(), nil
	}
	e.reset()
	return nil, ErrEndOfStream
}

func (e *Endpointer) reset() {
	e.current = nil
	e.window.Clear()
	if e.state != StateIdle {
		e.transition(StateIdle)
	}
}

func (e *Endpointer) transition(to State) {
	from := e.state
	e.state = to
	if e.hook != nil {
		e.hook(from, to)
	}
}
