package endpoint

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every validation error returned from Config.Validate
var ErrInvalidConfig = errors.New("invalid endpointer config")

// Config holds the endpointing parameters.
// The ratio defaults are empirical and have no derivation beyond working
// acceptably in manual testing; treat them as tunables.
type Config struct {
	SampleRate      int     // Samples per second of incoming frames
	FrameSize       int     // Samples per frame
	PreRollMs       int     // Duration covered by the pre-roll and hang-over windows
	TriggerRatio    float64 // Voiced share of the window needed to start recording
	ReleaseRatio    float64 // Unvoiced share of the window needed to stop recording
	SpeechThreshold float64 // Oracle probability at or above which a frame is voiced
}

// DefaultConfig returns the default endpointing configuration:
// 16 kHz audio in 512-sample frames with an 800 ms window.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FrameSize:       512,
		PreRollMs:       800,
		TriggerRatio:    0.8,
		ReleaseRatio:    0.9,
		SpeechThreshold: 0.5,
	}
}

// WindowCapacity returns the number of frames held by the pre-roll and
// hang-over windows. Partial frames are truncated.
func (c Config) WindowCapacity() int {
	if c.FrameSize <= 0 {
		return 0
	}
	return c.PreRollMs * c.SampleRate / (1000 * c.FrameSize)
}

// Validate checks every option and the derived window capacity
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %d", ErrInvalidConfig, c.FrameSize)
	}
	if c.PreRollMs <= 0 {
		return fmt.Errorf("%w: pre-roll must be positive, got %dms", ErrInvalidConfig, c.PreRollMs)
	}
	if c.TriggerRatio <= 0 || c.TriggerRatio > 1 {
		return fmt.Errorf("%w: trigger ratio must be in (0, 1], got %v", ErrInvalidConfig, c.TriggerRatio)
	}
	if c.ReleaseRatio <= 0 || c.ReleaseRatio > 1 {
		return fmt.Errorf("%w: release ratio must be in (0, 1], got %v", ErrInvalidConfig, c.ReleaseRatio)
	}
	if c.SpeechThreshold < 0 || c.SpeechThreshold > 1 {
		return fmt.Errorf("%w: speech threshold must be in [0, 1], got %v", ErrInvalidConfig, c.SpeechThreshold)
	}
	if c.WindowCapacity() < 1 {
		return fmt.Errorf("%w: %dms pre-roll holds no full %d-sample frame at %d Hz",
			ErrInvalidConfig, c.PreRollMs, c.FrameSize, c.SampleRate)
	}
	return nil
}
