// Package conversation runs the listen, transcribe, reason and speak loop.
//
// Each turn starts with an utterance from the endpointer and walks it through
// the transcription, reasoning and synthesis chains. A capability that runs
// out of providers degrades the turn instead of ending the session: the user
// is asked to repeat, hears an apology, or reads the reply as text.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/endpoint"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// NotUnderstoodPrompt is shown when the utterance could not be transcribed
const NotUnderstoodPrompt = "Sorry, I didn't catch that. Please repeat."

// AudioUnavailableNotice is shown when the reply could not be spoken
const AudioUnavailableNotice = "Audio playback is unavailable, showing the reply as text."

// Pipeline stages reported to the turn metrics
const (
	stageTranscribe = "transcribe"
	stageGenerate   = "generate"
	stageSynthesize = "synthesize"
	stagePlayback   = "playback"
)

// Outcome is how a turn ended
type Outcome string

const (
	OutcomeReplied       Outcome = "replied"        // Reply spoken
	OutcomeTextOnly      Outcome = "text_only"      // Reply shown as text, audio unavailable
	OutcomeNotUnderstood Outcome = "not_understood" // Transcription unavailable, user asked to repeat
	OutcomeSilence       Outcome = "silence"        // Utterance held no words
)

// Listener yields utterances
type Listener interface {
	Listen(ctx context.Context) (*endpoint.Utterance, error)
}

// Transcriber turns an utterance into text
type Transcriber interface {
	Transcribe(ctx context.Context, utt *endpoint.Utterance) (*stt.Transcript, error)
}

// Generator produces a reply to user text
type Generator interface {
	Generate(ctx context.Context, text string) (*llm.Reply, error)
}

// Synthesizer turns reply text into audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*tts.Speech, error)
}

// Turn is the record of one exchange
type Turn struct {
	ID          string
	UtteranceID string
	Transcript  string
	Reply       string
	Outcome     Outcome

	// Apology is set when the reply is the fallback text because no
	// reasoning provider was left.
	Apology bool

	// Providers maps each capability used to the provider that served it
	Providers map[string]string

	// Degraded holds the chain errors absorbed during the turn
	Degraded []error

	StartedAt time.Time
	Duration  time.Duration
}

// Option configures a Session
type Option func(*Session)

// WithSpeech enables spoken replies. Without it every reply is text only.
func WithSpeech(synth Synthesizer, sink tts.Sink) Option {
	return func(s *Session) {
		s.tts = synth
		s.sink = sink
	}
}

// WithRenderer sets where conversation text is shown
func WithRenderer(r Renderer) Option {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session holds the state of one conversation
type Session struct {
	listener Listener
	stt      Transcriber
	llm      Generator
	tts      Synthesizer
	sink     tts.Sink
	renderer Renderer
	logger   zerolog.Logger

	mu      sync.RWMutex
	history []*Turn
}

// NewSession creates a conversation session
func NewSession(listener Listener, transcriber Transcriber, generator Generator, opts ...Option) (*Session, error) {
	if listener == nil {
		return nil, errors.New("listener is required")
	}
	if transcriber == nil {
		return nil, errors.New("transcriber is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	s := &Session{
		listener: listener,
		stt:      transcriber,
		llm:      generator,
		renderer: discardRenderer{},
		logger:   observability.WithComponent("conversation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunTurn waits for the next utterance and answers it. It returns
// endpoint.ErrEndOfStream when the audio source is exhausted and the context
// error when ctx ends; chain failures never surface as errors.
func (s *Session) RunTurn(ctx context.Context) (*Turn, error) {
	utt, err := s.listener.Listen(ctx)
	if err != nil {
		return nil, err
	}

	turn := &Turn{
		ID:          observability.NewCorrelationID(),
		UtteranceID: utt.ID,
		Providers:   make(map[string]string),
		StartedAt:   time.Now(),
	}
	metrics := observability.NewTurnMetrics(turn.ID)
	logger := s.logger.With().
		Str("turn_id", turn.ID).
		Str("utterance_id", utt.ID).
		Logger()

	logger.Info().
		Dur("audio", utt.Duration()).
		Bool("truncated", utt.Truncated).
		Msg("Turn started")

	metrics.RecordStageStart(stageTranscribe)
	transcript, err := s.stt.Transcribe(ctx, utt)
	metrics.RecordStageEnd(stageTranscribe)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Msg("Transcription unavailable, asking user to repeat")
		turn.Degraded = append(turn.Degraded, err)
		s.render(logger, turn, RoleSystem, NotUnderstoodPrompt)
		return s.finish(logger, metrics, turn, OutcomeNotUnderstood), nil
	}
	turn.Providers[stt.Capability] = transcript.Provider

	if transcript.Blank() {
		logger.Debug().Msg("Utterance held no words")
		return s.finish(logger, metrics, turn, OutcomeSilence), nil
	}
	turn.Transcript = transcript.Text
	s.render(logger, turn, RoleUser, transcript.Text)

	metrics.RecordStageStart(stageGenerate)
	reply, err := s.llm.Generate(ctx, transcript.Text)
	metrics.RecordStageEnd(stageGenerate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error().Err(err).Msg("Reasoning unavailable, replying with apology")
		turn.Degraded = append(turn.Degraded, err)
		turn.Reply = llm.FallbackReply
		turn.Apology = true
	} else {
		turn.Reply = reply.Text
		turn.Providers[llm.Capability] = reply.Provider
	}
	s.render(logger, turn, RoleAssistant, turn.Reply)

	outcome, err := s.speak(ctx, logger, metrics, turn)
	if err != nil {
		return nil, err
	}
	return s.finish(logger, metrics, turn, outcome), nil
}

// speak synthesizes and plays the reply. Only cancellation is returned as
// an error; everything else degrades to text.
func (s *Session) speak(ctx context.Context, logger zerolog.Logger, metrics *observability.Metrics, turn *Turn) (Outcome, error) {
	if s.tts == nil || s.sink == nil {
		return OutcomeTextOnly, nil
	}

	metrics.RecordStageStart(stageSynthesize)
	speech, err := s.tts.Synthesize(ctx, turn.Reply)
	metrics.RecordStageEnd(stageSynthesize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn().Err(err).Msg("Synthesis unavailable, falling back to text")
		turn.Degraded = append(turn.Degraded, err)
		s.render(logger, turn, RoleSystem, AudioUnavailableNotice)
		return OutcomeTextOnly, nil
	}
	turn.Providers[tts.Capability] = speech.Provider

	metrics.RecordStageStart(stagePlayback)
	err = s.sink.Play(ctx, speech.Audio)
	metrics.RecordStageEnd(stagePlayback)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn().Err(err).Msg("Playback failed, falling back to text")
		turn.Degraded = append(turn.Degraded, fmt.Errorf("playback: %w", err))
		s.render(logger, turn, RoleSystem, AudioUnavailableNotice)
		return OutcomeTextOnly, nil
	}
	return OutcomeReplied, nil
}

func (s *Session) render(logger zerolog.Logger, turn *Turn, role Role, text string) {
	if err := s.renderer.Render(Message{TurnID: turn.ID, Role: role, Text: text}); err != nil {
		logger.Warn().Err(err).Str("role", string(role)).Msg("Failed to render message")
	}
}

func (s *Session) finish(logger zerolog.Logger, metrics *observability.Metrics, turn *Turn, outcome Outcome) *Turn {
	turn.Outcome = outcome
	turn.Duration = time.Since(turn.StartedAt)
	metrics.RecordTurnEnd(string(outcome))

	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()

	logger.Info().
		Str("outcome", string(outcome)).
		Dur("duration", turn.Duration).
		Int("degraded", len(turn.Degraded)).
		Msg("Turn finished")
	return turn
}

// Run answers utterances until the audio source is exhausted, which returns
// nil, or ctx ends, which returns the context error.
func (s *Session) Run(ctx context.Context) error {
	return s.run(ctx, nil)
}

func (s *Session) run(ctx context.Context, onTurn func(*Turn) error) error {
	for {
		turn, err := s.RunTurn(ctx)
		if errors.Is(err, endpoint.ErrEndOfStream) {
			s.logger.Info().Int("turns", len(s.History())).Msg("Audio source exhausted, conversation over")
			return nil
		}
		if err != nil {
			return err
		}
		if onTurn != nil {
			if err := onTurn(turn); err != nil {
				return err
			}
		}
	}
}

// Start runs the conversation on a background goroutine so the caller stays
// responsive. Finished turns are delivered on the first channel, which is
// closed when the loop stops; the loop's result is then sent on the second.
func (s *Session) Start(ctx context.Context) (<-chan *Turn, <-chan error) {
	turns := make(chan *Turn, 16)
	done := make(chan error, 1)

	go func() {
		defer close(done)
		defer close(turns)

		done <- s.run(ctx, func(turn *Turn) error {
			select {
			case turns <- turn:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return turns, done
}

// History returns the finished turns, oldest first
func (s *Session) History() []*Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Turn(nil), s.history...)
}
