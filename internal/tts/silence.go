package tts

import (
	"context"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/config"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// SilenceEngine stands in for real synthesis by returning a fixed
// length of silence regardless of the text.
type SilenceEngine struct {
	duration time.Duration
	format   config.AudioConfig
}

// NewSilenceEngine creates a placeholder engine.
func NewSilenceEngine(duration time.Duration, format config.AudioConfig) *SilenceEngine {
	return &SilenceEngine{duration: duration, format: format}
}

// Synthesize returns silence in the configured format.
func (s *SilenceEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debugf("[tts] silence: %d characters -> %v placeholder", len([]rune(text)), s.duration)
	return audio.Silent(s.duration, s.format.SampleRate, s.format.Channels, s.format.BitDepth), nil
}
