package endpoint

import (
	"time"

	"github.com/google/uuid"

	"github.com/lexiqai/voice-assistant/internal/audio"
)

// Utterance is the audio of one detected stretch of speech: the pre-roll
// window followed by every frame seen while recording. It is not modified
// after the endpointer hands it over.
type Utterance struct {
	ID         string
	Frames     []audio.Frame
	SampleRate int

	// PreRoll is the number of leading frames taken from the pre-roll window
	PreRoll int

	// Truncated is set when the frame source ended before the hang-over
	// window released the recording.
	Truncated bool
}

func newUtterance(sampleRate int) *Utterance {
	return &Utterance{
		ID:         uuid.New().String(),
		SampleRate: sampleRate,
	}
}

// Empty reports whether the utterance carries no audio
func (u *Utterance) Empty() bool {
	return u == nil || u.NumSamples() == 0
}

// NumSamples returns the total sample count
func (u *Utterance) NumSamples() int {
	n := 0
	for _, f := range u.Frames {
		n += f.Len()
	}
	return n
}

// Duration returns the audio duration
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(u.NumSamples()) * time.Second / time.Duration(u.SampleRate)
}

// Samples concatenates all frames into one sample slice
func (u *Utterance) Samples() []int16 {
	out := make([]int16, 0, u.NumSamples())
	for _, f := range u.Frames {
		out = append(out, f.Samples...)
	}
	return out
}

// PCM returns the audio as little-endian 16-bit PCM
func (u *Utterance) PCM() []byte {
	return audio.SamplesToPCM(u.Samples())
}

// WAV returns the audio wrapped in a mono 16-bit WAV container
func (u *Utterance) WAV() ([]byte, error) {
	return audio.EncodeWAV(u.Samples(), u.SampleRate)
}
