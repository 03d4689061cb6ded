package tts

import (
	"context"
	"fmt"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/config"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// SherpaEngine runs an offline VITS voice through sherpa-onnx.
type SherpaEngine struct {
	mu    sync.Mutex
	tts   *sherpa.OfflineTts
	sid   int
	speed float32
}

// NewSherpaEngine loads the model files named in cfg.
func NewSherpaEngine(cfg config.SherpaConfig) (*SherpaEngine, error) {
	if cfg.Model == "" || cfg.Tokens == "" {
		return nil, fmt.Errorf("[tts] sherpa engine requires tts.sherpa.model and tts.sherpa.tokens")
	}

	ttsConfig := sherpa.OfflineTtsConfig{}
	ttsConfig.Model.Vits.Model = cfg.Model
	ttsConfig.Model.Vits.Tokens = cfg.Tokens
	ttsConfig.Model.Vits.Lexicon = cfg.Lexicon
	ttsConfig.Model.Vits.DataDir = cfg.DataDir
	ttsConfig.Model.NumThreads = cfg.NumThreads
	ttsConfig.Model.Provider = "cpu"
	ttsConfig.MaxNumSentences = 1

	t := sherpa.NewOfflineTts(&ttsConfig)
	if t == nil {
		return nil, fmt.Errorf("[tts] sherpa: failed to load model %s", cfg.Model)
	}

	logger.Infof("[tts] sherpa-onnx TTS ready (model=%s, sid=%d)", cfg.Model, cfg.SpeakerID)

	return &SherpaEngine{tts: t, sid: cfg.SpeakerID, speed: cfg.Speed}, nil
}

// Synthesize generates mono float audio and wraps it as 16-bit PCM.
func (s *SherpaEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tts == nil {
		return nil, fmt.Errorf("[tts] sherpa: engine is closed")
	}

	logger.Debugf("[tts] sherpa: synthesizing %d characters", len([]rune(text)))
	generated := s.tts.Generate(text, s.sid, s.speed)
	if generated == nil || len(generated.Samples) == 0 {
		return nil, fmt.Errorf("[tts] sherpa: no audio generated")
	}

	return audio.FromFloat32(generated.Samples, generated.SampleRate, 1), nil
}

// Close frees the native model.
func (s *SherpaEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tts != nil {
		sherpa.DeleteOfflineTts(s.tts)
		s.tts = nil
	}
	return nil
}
