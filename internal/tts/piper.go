package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// piperSampleRate is the fixed output rate of piper voices.
const piperSampleRate = 22050

// PiperEngine runs the piper CLI as a subprocess for offline synthesis.
type PiperEngine struct {
	modelPath string
}

// NewPiperEngine creates a piper engine for the given voice model.
func NewPiperEngine(modelPath string) *PiperEngine {
	return &PiperEngine{modelPath: modelPath}
}

// Synthesize pipes text to piper, which writes signed 16-bit LE mono PCM.
func (p *PiperEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	logger.Debugf("[tts] piper: synthesizing %d characters, model=%s", len([]rune(text)), p.modelPath)

	cmd := exec.CommandContext(ctx, "piper", "--model", p.modelPath, "--output-raw")
	cmd.Stdin = bytes.NewReader([]byte(text))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := stderr.String(); s != "" {
			logger.Warnf("[tts] piper stderr: %s", s)
		}
		return nil, fmt.Errorf("[tts] piper failed: %w", err)
	}

	pcmData := stdout.Bytes()
	if len(pcmData) == 0 {
		return nil, fmt.Errorf("[tts] piper: no audio received")
	}
	logger.Debugf("[tts] piper: received %d bytes of raw PCM", len(pcmData))

	return audio.FromInt16(audio.BytesToInt16(pcmData), piperSampleRate, 1), nil
}
