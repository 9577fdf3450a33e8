package endpoint

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/audio"
)

const (
	unvoiced   int16 = 0
	voiced     int16 = 1
	oracleFail int16 = -1
)

// frame encodes the oracle verdict in the first sample and a sequence
// number in the second so tests can check ordering.
func frame(verdict int16, seq int) audio.Frame {
	return audio.Frame{Samples: []int16{verdict, int16(seq)}}
}

func framesOf(verdicts ...int16) []audio.Frame {
	out := make([]audio.Frame, len(verdicts))
	for i, v := range verdicts {
		out[i] = frame(v, i)
	}
	return out
}

func repeat(v int16, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]int16) []int16 {
	var out []int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var scriptedOracle = audio.OracleFunc(func(f audio.Frame) (float64, error) {
	switch f.Samples[0] {
	case voiced:
		return 1.0, nil
	case oracleFail:
		return 0, audio.ErrOracleUnavailable
	default:
		return 0.0, nil
	}
})

// testConfig yields a window capacity of 10 frames
func testConfig() Config {
	return Config{
		SampleRate:      1000,
		FrameSize:       10,
		PreRollMs:       100,
		TriggerRatio:    0.8,
		ReleaseRatio:    0.9,
		SpeechThreshold: 0.5,
	}
}

func newTestEndpointer(t *testing.T, cfg Config, frames []audio.Frame, opts ...Option) *Endpointer {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	e, err := NewEndpointer(cfg, audio.NewSliceSource(frames...), scriptedOracle, opts...)
	if err != nil {
		t.Fatalf("NewEndpointer failed: %v", err)
	}
	return e
}

func seqOf(f audio.Frame) int {
	return int(f.Samples[1])
}

// stepUntilRecording feeds frames one at a time and returns the index of the
// frame whose insertion started the recording, or -1.
func stepUntilRecording(e *Endpointer, frames []audio.Frame) int {
	for i, f := range frames {
		e.Step(f)
		if e.State() == StateRecording {
			return i
		}
	}
	return -1
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	if cfg.SampleRate != 16000 || cfg.FrameSize != 512 || cfg.PreRollMs != 800 {
		t.Errorf("Unexpected audio defaults: %+v", cfg)
	}
	if cfg.TriggerRatio != 0.8 || cfg.ReleaseRatio != 0.9 {
		t.Errorf("Unexpected ratio defaults: %+v", cfg)
	}
	if got := cfg.WindowCapacity(); got != 25 {
		t.Errorf("Expected window capacity 25, got %d", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative frame size", func(c *Config) { c.FrameSize = -1 }},
		{"zero pre-roll", func(c *Config) { c.PreRollMs = 0 }},
		{"zero trigger ratio", func(c *Config) { c.TriggerRatio = 0 }},
		{"trigger ratio above one", func(c *Config) { c.TriggerRatio = 1.01 }},
		{"negative release ratio", func(c *Config) { c.ReleaseRatio = -0.5 }},
		{"release ratio above one", func(c *Config) { c.ReleaseRatio = 2 }},
		{"speech threshold above one", func(c *Config) { c.SpeechThreshold = 1.5 }},
		{"window shorter than a frame", func(c *Config) { c.PreRollMs = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfig_RatiosOfOneAreValid(t *testing.T) {
	cfg := testConfig()
	cfg.TriggerRatio = 1
	cfg.ReleaseRatio = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected ratios of 1 to be valid, got %v", err)
	}
}

func TestNewEndpointer_RequiresCollaborators(t *testing.T) {
	if _, err := NewEndpointer(testConfig(), nil, scriptedOracle); err == nil {
		t.Error("Expected error for nil frame source")
	}
	if _, err := NewEndpointer(testConfig(), audio.NewSliceSource(), nil); err == nil {
		t.Error("Expected error for nil oracle")
	}
}

func TestEndpointer_TriggerRequiresStrictlyMoreThanRatio(t *testing.T) {
	// Capacity 10, ratio 0.8: eight voiced frames are exactly 0.8 and do not
	// trigger; the ninth does.
	frames := framesOf(concat(repeat(unvoiced, 2), repeat(voiced, 9))...)
	e := newTestEndpointer(t, testConfig(), nil)

	got := stepUntilRecording(e, frames)
	if got != 10 {
		t.Errorf("Expected recording to start at frame 10 (9th voiced), got %d", got)
	}
}

func TestEndpointer_TriggerAtEighthVoicedFrame(t *testing.T) {
	// 8 voiced and 2 unvoiced frames in mixed order; with a ratio just below
	// 0.8 the trigger fires on the 8th voiced frame and not before.
	verdicts := []int16{voiced, unvoiced, voiced, voiced, voiced, unvoiced, voiced, voiced, voiced, voiced}
	cfg := testConfig()
	cfg.TriggerRatio = 0.75

	e := newTestEndpointer(t, cfg, nil)
	frames := framesOf(verdicts...)

	for i, f := range frames[:len(frames)-1] {
		e.Step(f)
		if e.State() != StateIdle {
			t.Fatalf("Expected idle after frame %d, got %s", i, e.State())
		}
	}
	e.Step(frames[len(frames)-1])
	if e.State() != StateRecording {
		t.Fatalf("Expected recording after the 8th voiced frame, got %s", e.State())
	}
}

func TestEndpointer_TriggerMatchesWindowRule(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ratios := []float64{0.3, 0.5, 0.8, 1.0}
	capacity := testConfig().WindowCapacity()

	for _, ratio := range ratios {
		for run := 0; run < 50; run++ {
			verdicts := make([]int16, 60)
			for i := range verdicts {
				if rng.Float64() < 0.6 {
					verdicts[i] = voiced
				}
			}

			// Reference: voiced count among the last `capacity` frames
			want := -1
			for i := range verdicts {
				lo := i - capacity + 1
				if lo < 0 {
					lo = 0
				}
				count := 0
				for _, v := range verdicts[lo : i+1] {
					if v == voiced {
						count++
					}
				}
				if float64(count)/float64(capacity) > ratio {
					want = i
					break
				}
			}

			cfg := testConfig()
			cfg.TriggerRatio = ratio
			e := newTestEndpointer(t, cfg, nil)
			if got := stepUntilRecording(e, framesOf(verdicts...)); got != want {
				t.Fatalf("ratio %v run %d: expected trigger at %d, got %d", ratio, run, want, got)
			}
		}
	}
}

func TestEndpointer_ReleaseRequiresStrictlyMoreThanRatio(t *testing.T) {
	// Trigger on frame 8 (9 voiced), then 9 unvoiced frames are exactly 0.9
	// of the trailing window and do not release; the 10th does.
	verdicts := concat(repeat(voiced, 9), repeat(unvoiced, 10), repeat(voiced, 5))

	var transitions []State
	e := newTestEndpointer(t, testConfig(), framesOf(verdicts...),
		WithStateHook(func(from, to State) { transitions = append(transitions, to) }))

	utt, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if len(utt.Frames) != 19 {
		t.Errorf("Expected 19 frames (9 pre-roll + 10 recorded), got %d", len(utt.Frames))
	}
	if last := seqOf(utt.Frames[len(utt.Frames)-1]); last != 18 {
		t.Errorf("Expected recording to end at frame 18, got %d", last)
	}

	expected := []State{StateRecording, StateTerminal, StateIdle}
	if len(transitions) != len(expected) {
		t.Fatalf("Expected transitions %v, got %v", expected, transitions)
	}
	for i := range expected {
		if transitions[i] != expected[i] {
			t.Errorf("Expected transition %d to be %s, got %s", i, expected[i], transitions[i])
		}
	}
}

func TestEndpointer_HangOverToleratesShortPauses(t *testing.T) {
	verdicts := concat(
		repeat(voiced, 9),   // trigger
		repeat(unvoiced, 6), // inhale
		repeat(voiced, 3),
		repeat(unvoiced, 8), // pause
		repeat(voiced, 2),
		repeat(unvoiced, 10), // end of speech
	)
	e := newTestEndpointer(t, testConfig(), framesOf(verdicts...))

	utt, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if len(utt.Frames) != len(verdicts) {
		t.Errorf("Expected the whole stream in one utterance (%d frames), got %d", len(verdicts), len(utt.Frames))
	}
	if utt.Truncated {
		t.Error("Expected utterance released by hang-over, not truncated")
	}
}

func TestEndpointer_PreRollPreservation(t *testing.T) {
	// Window not yet full: with ratio 0.5 the trigger fires on the 7th frame
	// (6 voiced of capacity 10) and the utterance must start with all seven
	// frames in order.
	cfg := testConfig()
	cfg.TriggerRatio = 0.5
	verdicts := concat([]int16{unvoiced}, repeat(voiced, 5), repeat(voiced, 3), repeat(unvoiced, 10))
	e := newTestEndpointer(t, cfg, framesOf(verdicts...))

	utt, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if utt.PreRoll != 7 {
		t.Errorf("Expected 7 pre-roll frames, got %d", utt.PreRoll)
	}
	for i, f := range utt.Frames {
		if seqOf(f) != i {
			t.Fatalf("Expected frame %d at position %d, got %d", i, i, seqOf(f))
		}
	}
}

func TestEndpointer_PreRollEvictsOldFrames(t *testing.T) {
	verdicts := concat(repeat(unvoiced, 15), repeat(voiced, 9), repeat(unvoiced, 10))
	e := newTestEndpointer(t, testConfig(), framesOf(verdicts...))

	utt, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if utt.PreRoll != 10 {
		t.Errorf("Expected a full pre-roll window of 10 frames, got %d", utt.PreRoll)
	}
	// Trigger on frame 23, window holds frames 14..23
	if first := seqOf(utt.Frames[0]); first != 14 {
		t.Errorf("Expected utterance to start at frame 14, got %d", first)
	}
	for i := 1; i < len(utt.Frames); i++ {
		if seqOf(utt.Frames[i]) != seqOf(utt.Frames[i-1])+1 {
			t.Fatalf("Frames out of order at position %d", i)
		}
	}
}

func TestEndpointer_MultipleUtterancesInOrder(t *testing.T) {
	one := concat(repeat(voiced, 9), repeat(unvoiced, 10))
	two := concat(repeat(voiced, 9), repeat(unvoiced, 10))
	verdicts := concat(one, repeat(unvoiced, 1), two)
	e := newTestEndpointer(t, testConfig(), framesOf(verdicts...))
	ctx := context.Background()

	first, err := e.Listen(ctx)
	if err != nil {
		t.Fatalf("First Listen failed: %v", err)
	}
	if e.State() != StateIdle {
		t.Errorf("Expected idle after an utterance, got %s", e.State())
	}

	second, err := e.Listen(ctx)
	if err != nil {
		t.Fatalf("Second Listen failed: %v", err)
	}

	if first.ID == second.ID {
		t.Error("Expected distinct utterance IDs")
	}
	if seqOf(second.Frames[0]) <= seqOf(first.Frames[len(first.Frames)-1]) {
		t.Error("Expected second utterance to start after the first ended")
	}
	// Window was reset: the pre-roll starts at the silent gap frame and holds
	// nothing from the first utterance.
	if seqOf(second.Frames[0]) != len(one) {
		t.Errorf("Expected second utterance to start at frame %d, got %d", len(one), seqOf(second.Frames[0]))
	}

	if _, err := e.Listen(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream after the last utterance, got %v", err)
	}
}

func TestEndpointer_EmptySource(t *testing.T) {
	e := newTestEndpointer(t, testConfig(), nil)

	utt, err := e.Listen(context.Background())
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("Expected ErrEndOfStream, got %v", err)
	}
	if utt != nil {
		t.Error("Expected no utterance")
	}
}

func TestEndpointer_SourceEndsWhileIdle(t *testing.T) {
	e := newTestEndpointer(t, testConfig(), framesOf(concat(repeat(voiced, 5), repeat(unvoiced, 5))...))

	if _, err := e.Listen(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream, got %v", err)
	}
}

func TestEndpointer_SourceEndsWhileRecording(t *testing.T) {
	e := newTestEndpointer(t, testConfig(), framesOf(concat(repeat(voiced, 9), repeat(voiced, 4))...))
	ctx := context.Background()

	utt, err := e.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if !utt.Truncated {
		t.Error("Expected truncated utterance")
	}
	if len(utt.Frames) != 13 {
		t.Errorf("Expected 13 frames, got %d", len(utt.Frames))
	}

	if _, err := e.Listen(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream after truncated utterance, got %v", err)
	}
}

func TestEndpointer_OracleFailureCountsAsUnvoiced(t *testing.T) {
	// Failures never trigger while idle
	e := newTestEndpointer(t, testConfig(), framesOf(repeat(oracleFail, 30)...))
	if _, err := e.Listen(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream, got %v", err)
	}

	// While recording they count toward release but keep the captured audio
	verdicts := concat(repeat(voiced, 9), repeat(voiced, 3), repeat(oracleFail, 10))
	e = newTestEndpointer(t, testConfig(), framesOf(verdicts...))

	utt, err := e.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if utt.Truncated {
		t.Error("Expected release by oracle failures counted as unvoiced")
	}
	if len(utt.Frames) != len(verdicts) {
		t.Errorf("Expected %d frames, got %d", len(verdicts), len(utt.Frames))
	}
}

// cancellingSource cancels its context when the given frame is read
type cancellingSource struct {
	inner    *audio.SliceSource
	cancelAt int
	cancel   context.CancelFunc
	reads    int
}

func (s *cancellingSource) Next(ctx context.Context) (audio.Frame, error) {
	f, err := s.inner.Next(ctx)
	if err != nil {
		return f, err
	}
	s.reads++
	if s.reads == s.cancelAt {
		s.cancel()
	}
	return f, nil
}

func TestEndpointer_CancellationWithinOneFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel mid-recording, long before the utterance would end
	src := &cancellingSource{
		inner:    audio.NewSliceSource(framesOf(repeat(voiced, 100)...)...),
		cancelAt: 15,
		cancel:   cancel,
	}
	e, err := NewEndpointer(testConfig(), src, scriptedOracle, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewEndpointer failed: %v", err)
	}

	utt, err := e.Listen(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if utt != nil {
		t.Error("Expected no utterance on cancellation")
	}
	if src.reads != 15 {
		t.Errorf("Expected the loop to stop right after frame 15, read %d", src.reads)
	}
	if e.State() != StateIdle {
		t.Errorf("Expected idle after cancellation, got %s", e.State())
	}
}

func TestListen_OneShot(t *testing.T) {
	src := audio.NewSliceSource(framesOf(concat(repeat(voiced, 9), repeat(unvoiced, 10))...)...)

	utt, err := Listen(context.Background(), src, scriptedOracle, testConfig())
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if utt.Empty() {
		t.Error("Expected a non-empty utterance")
	}
}

func TestListen_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ReleaseRatio = 0

	_, err := Listen(context.Background(), audio.NewSliceSource(), scriptedOracle, cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StateRecording: "recording",
		StateTerminal:  "terminal",
		State(42):      "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
