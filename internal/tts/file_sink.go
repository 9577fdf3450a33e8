package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/observability"
)

// FileSink "plays" audio by writing it to a file in a directory. The file is
// overwritten on every reply, so the directory always holds the latest one.
type FileSink struct {
	dir    string
	logger zerolog.Logger

	mu   sync.Mutex
	last string
}

// NewFileSink creates the output directory if needed
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{
		dir:    dir,
		logger: observability.WithComponent("file_sink"),
	}, nil
}

// Play writes audio to response.<format>. The write goes through a temporary
// file so a reader never sees a partial reply.
func (s *FileSink) Play(ctx context.Context, audio *Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if audio == nil || len(audio.Data) == 0 {
		return ErrEmptyAudio
	}

	format := audio.Format
	if format == "" {
		format = "bin"
	}
	path := filepath.Join(s.dir, "response."+format)

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".response-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(audio.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move audio into place: %w", err)
	}

	s.last = path
	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(audio.Data)).
		Msg("Reply audio written")
	return nil
}

// LastPath returns the path of the most recent reply, or "" if none
func (s *FileSink) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
