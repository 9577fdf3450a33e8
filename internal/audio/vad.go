package audio

import "errors"

// ErrOracleUnavailable is returned by an oracle that cannot classify frames
var ErrOracleUnavailable = errors.New("speech oracle unavailable")

// SpeechOracle estimates the probability that a frame contains speech.
// Any classifier with this signature can drive the endpointer.
type SpeechOracle interface {
	SpeechProbability(frame Frame) (float64, error)
}

// OracleFunc adapts a plain function to SpeechOracle
type OracleFunc func(frame Frame) (float64, error)

// SpeechProbability calls f(frame)
func (f OracleFunc) SpeechProbability(frame Frame) (float64, error) {
	return f(frame)
}

// EnergyOracle is a model-free oracle based on RMS energy.
// The probability is rms/(rms+threshold), so a frame whose energy equals
// the threshold scores exactly 0.5.
type EnergyOracle struct {
	Threshold float64 // RMS energy at which the probability reaches 0.5
}

// DefaultEnergyThreshold suits 16-bit PCM from a close-talking microphone
const DefaultEnergyThreshold = 500.0

// NewEnergyOracle creates an energy oracle; a non-positive threshold
// falls back to DefaultEnergyThreshold.
func NewEnergyOracle(threshold float64) *EnergyOracle {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyOracle{Threshold: threshold}
}

// SpeechProbability maps frame energy into [0, 1)
func (o *EnergyOracle) SpeechProbability(frame Frame) (float64, error) {
	if frame.Len() == 0 {
		return 0, errors.New("empty frame")
	}
	rms := CalculateRMS(frame.Samples)
	return rms / (rms + o.Threshold), nil
}
