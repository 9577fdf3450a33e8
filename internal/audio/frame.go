package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Frame is a fixed-length buffer of mono 16-bit PCM samples.
// Frames are treated as immutable once produced.
type Frame struct {
	Samples []int16
}

// Len returns the number of samples in the frame
func (f Frame) Len() int {
	return len(f.Samples)
}

// FrameSource yields audio frames in arrival order.
// Next returns io.EOF once the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// SliceSource replays a fixed list of frames. Useful for tests and for
// feeding pre-recorded audio through the endpointer.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource creates a source that yields the given frames once
func NewSliceSource(frames ...Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame or io.EOF
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Remaining returns how many frames have not been read yet
func (s *SliceSource) Remaining() int {
	return len(s.frames) - s.pos
}

// PCMSource reads little-endian signed 16-bit mono PCM from a reader and
// slices it into frames of frameSize samples. A trailing partial frame is
// dropped.
type PCMSource struct {
	r         io.Reader
	frameSize int
	buf       []byte
}

// NewPCMSource creates a frame source over raw PCM
func NewPCMSource(r io.Reader, frameSize int) (*PCMSource, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	return &PCMSource{
		r:         r,
		frameSize: frameSize,
		buf:       make([]byte, frameSize*2),
	}, nil
}

// Next blocks until a full frame has been read
func (p *PCMSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if _, err := io.ReadFull(p.r, p.buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}

	samples, err := PCMToSamples(p.buf)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Samples: samples}, nil
}
