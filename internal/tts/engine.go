package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/config"
)

// TextToAudio is a speech synthesis backend.
type TextToAudio interface {
	// Synthesize renders text as a PCM clip.
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
}

// New builds the engine named by cfg.Engine, wrapped in a CachedEngine
// when cfg.Cache.MaxSizeMB is positive.
// Engines holding native resources also implement io.Closer.
func New(cfg config.TTSConfig, format config.AudioConfig) (TextToAudio, error) {
	engine, err := newEngine(cfg, format)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.MaxSizeMB <= 0 {
		return engine, nil
	}

	cache, err := NewCache(cfg.Cache.Dir, cfg.Cache.MaxSizeMB)
	if err != nil {
		if c, ok := engine.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return NewCachedEngine(engine, cache, VoiceIdentity(cfg, format)), nil
}

func newEngine(cfg config.TTSConfig, format config.AudioConfig) (TextToAudio, error) {
	switch cfg.Engine {
	case "silence", "":
		return NewSilenceEngine(time.Duration(cfg.Silence.DurationMs)*time.Millisecond, format), nil
	case "edge":
		return NewEdgeEngine(cfg.Edge.Voice), nil
	case "tencent":
		return NewTencentEngine(TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
			Speed:     cfg.Tencent.Speed,
		})
	case "piper":
		if cfg.Piper.ModelPath == "" {
			return nil, fmt.Errorf("[tts] piper engine requires tts.piper.model_path")
		}
		return NewPiperEngine(cfg.Piper.ModelPath), nil
	case "say":
		return NewSayEngine(cfg.Say.Voice), nil
	case "sherpa":
		return NewSherpaEngine(cfg.Sherpa)
	default:
		return nil, fmt.Errorf("[tts] unknown engine %q", cfg.Engine)
	}
}

// VoiceIdentity names everything besides the text that shapes an
// engine's output. It keys the synthesis cache and is recorded on jobs.
func VoiceIdentity(cfg config.TTSConfig, format config.AudioConfig) string {
	switch cfg.Engine {
	case "edge":
		return "edge/" + cfg.Edge.Voice
	case "tencent":
		return fmt.Sprintf("tencent/%d/%g", cfg.Tencent.VoiceType, cfg.Tencent.Speed)
	case "piper":
		return "piper/" + cfg.Piper.ModelPath
	case "say":
		return "say/" + cfg.Say.Voice
	case "sherpa":
		return fmt.Sprintf("sherpa/%s/%d/%g", cfg.Sherpa.Model, cfg.Sherpa.SpeakerID, cfg.Sherpa.Speed)
	default:
		return fmt.Sprintf("silence/%d/%d/%d/%d", cfg.Silence.DurationMs, format.SampleRate, format.Channels, format.BitDepth)
	}
}
