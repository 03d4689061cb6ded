package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// SayEngine uses the macOS say command. macOS only.
type SayEngine struct {
	voice string // e.g. "Samantha"; system default when empty
}

// NewSayEngine creates a say engine.
func NewSayEngine(voice string) *SayEngine {
	return &SayEngine{voice: voice}
}

// Synthesize renders AIFF with say, converts it to 16-bit WAV with
// afconvert and decodes the result.
func (s *SayEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	logger.Debugf("[tts] say: synthesizing %d characters", len([]rune(text)))

	tmpFile, err := os.CreateTemp("", "narrator-say-*.aiff")
	if err != nil {
		return nil, fmt.Errorf("[tts] say: create temp file: %w", err)
	}
	aiffPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(aiffPath)

	wavPath := aiffPath + ".wav"
	defer os.Remove(wavPath)

	args := []string{"-o", aiffPath}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, "say", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("[tts] say failed: %w, stderr: %s", err, stderr.String())
	}

	convertCmd := exec.CommandContext(ctx, "afconvert",
		"-f", "WAVE",
		"-d", "LEI16@22050",
		"-c", "1",
		aiffPath, wavPath,
	)
	var convertStderr bytes.Buffer
	convertCmd.Stderr = &convertStderr
	if err := convertCmd.Run(); err != nil {
		return nil, fmt.Errorf("[tts] afconvert failed: %w, stderr: %s", err, convertStderr.String())
	}

	clip, err := audio.ReadWAV(wavPath)
	if err != nil {
		return nil, fmt.Errorf("[tts] say: %w", err)
	}
	return clip, nil
}
