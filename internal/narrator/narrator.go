// Package narrator implements the generate, mix and demo operations.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/jobs"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/tts"
)

// ErrInvalidRequest marks a request with missing fields.
var ErrInvalidRequest = errors.New("narrator: invalid request")

// GenerationRequest asks for Text to be rendered to OutputPath.
type GenerationRequest struct {
	Text       string
	OutputPath string
}

// MixRequest overlays BackgroundPath onto InputPath after shifting the
// background by VolumeGainDB.
type MixRequest struct {
	InputPath      string
	BackgroundPath string
	OutputPath     string
	VolumeGainDB   float64
}

// JobRecorder persists job history. *jobs.Store satisfies it.
type JobRecorder interface {
	Save(j *jobs.Job) error
	Update(j *jobs.Job) error
}

// Service runs narrator operations against a synthesis engine.
type Service struct {
	engine   tts.TextToAudio
	recorder JobRecorder
	voiceID  string
}

// Option configures a Service.
type Option func(*Service)

// WithJobRecorder records every operation as a job.
func WithJobRecorder(r JobRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithVoiceID labels narration jobs with the engine's voice identity.
func WithVoiceID(id string) Option {
	return func(s *Service) {
		s.voiceID = id
	}
}

// New creates a Service. engine may be nil when only Mix is used.
func New(engine tts.TextToAudio, opts ...Option) *Service {
	s := &Service{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate synthesizes req.Text and writes it as WAV to req.OutputPath,
// replacing any existing file.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) error {
	if req.Text == "" || req.OutputPath == "" {
		return fmt.Errorf("%w: text and output path are required", ErrInvalidRequest)
	}
	if s.engine == nil {
		return fmt.Errorf("[narrator] no synthesis engine configured")
	}

	logger.Infof("[narrator] generating audio for %q to %s", req.Text, req.OutputPath)

	job := jobs.NewJob(jobs.TypeNarration, "", req.OutputPath)
	job.TextContent = req.Text
	job.VoiceID = s.voiceID

	return s.track(job, func() error {
		clip, err := s.engine.Synthesize(ctx, req.Text)
		if err != nil {
			return fmt.Errorf("[narrator] synthesize: %w", err)
		}
		if err := audio.WriteWAV(req.OutputPath, clip); err != nil {
			return err
		}
		logger.Debugf("[narrator] wrote %s (%s)", req.OutputPath, clip)
		return nil
	})
}

// Mix overlays the gain-adjusted background onto the input starting at
// time zero. The output keeps the input's duration.
func (s *Service) Mix(ctx context.Context, req MixRequest) error {
	if req.InputPath == "" || req.BackgroundPath == "" || req.OutputPath == "" {
		return fmt.Errorf("%w: input, background and output paths are required", ErrInvalidRequest)
	}

	logger.Infof("[narrator] mixing %s with %s to %s with volume gain %gdB",
		req.InputPath, req.BackgroundPath, req.OutputPath, req.VolumeGainDB)

	job := jobs.NewJob(jobs.TypeMixing, req.InputPath, req.OutputPath)
	job.BackgroundAudioFilePath = req.BackgroundPath
	job.Volume = req.VolumeGainDB

	return s.track(job, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := audio.ReadWAV(req.InputPath)
		if err != nil {
			return err
		}
		background, err := audio.ReadWAV(req.BackgroundPath)
		if err != nil {
			return err
		}

		mixed, err := audio.Overlay(input, audio.ApplyGain(background, req.VolumeGainDB))
		if err != nil {
			return fmt.Errorf("[narrator] overlay: %w", err)
		}

		if err := audio.WriteWAV(req.OutputPath, mixed); err != nil {
			return err
		}
		logger.Debugf("[narrator] wrote %s (%s)", req.OutputPath, mixed)
		return nil
	})
}

// DemoRequest configures the demo sequence.
type DemoRequest struct {
	Dir          string
	OutputPath   string
	VolumeGainDB float64
}

// Demo texts, as written to short.wav and loop.wav.
const (
	DemoShortText = "This is a short test audio."
	DemoLoopText  = "This is a loopable background audio."
)

// Demo generates a foreground and a background clip in req.Dir and mixes
// them into req.OutputPath. req.Dir is created if needed.
func (s *Service) Demo(ctx context.Context, req DemoRequest) error {
	if req.Dir == "" || req.OutputPath == "" {
		return fmt.Errorf("%w: demo directory and output path are required", ErrInvalidRequest)
	}
	if err := os.MkdirAll(req.Dir, 0755); err != nil {
		return fmt.Errorf("[narrator] create demo directory: %w: %w", audio.ErrIO, err)
	}

	short := filepath.Join(req.Dir, "short.wav")
	loop := filepath.Join(req.Dir, "loop.wav")

	if err := s.Generate(ctx, GenerationRequest{Text: DemoShortText, OutputPath: short}); err != nil {
		return err
	}
	if err := s.Generate(ctx, GenerationRequest{Text: DemoLoopText, OutputPath: loop}); err != nil {
		return err
	}
	return s.Mix(ctx, MixRequest{
		InputPath:      short,
		BackgroundPath: loop,
		OutputPath:     req.OutputPath,
		VolumeGainDB:   req.VolumeGainDB,
	})
}

// track runs fn while recording the job lifecycle. Interrupted work is
// recorded as canceled. Recorder failures are logged and never change
// fn's result.
func (s *Service) track(job *jobs.Job, fn func() error) error {
	if s.recorder == nil {
		return fn()
	}

	if err := s.recorder.Save(job); err != nil {
		logger.Warnf("[narrator] record job: %v", err)
		return fn()
	}

	job.MarkRunning()
	s.update(job)

	err := fn()
	switch {
	case err == nil:
		job.MarkCompleted()
	case errors.Is(err, context.Canceled):
		job.MarkCanceled(err)
	default:
		job.MarkFailed(err)
	}
	s.update(job)
	return err
}

func (s *Service) update(job *jobs.Job) {
	if err := s.recorder.Update(job); err != nil {
		logger.Warnf("[narrator] update job %s: %v", job.ID, err)
	}
}
