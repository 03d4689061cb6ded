package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// EdgeEngine synthesizes speech with Microsoft Edge TTS.
// The service returns MP3 which is decoded with go-mp3.
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine creates an Edge TTS engine for voice.
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Synthesize streams MP3 chunks from Edge TTS and decodes them.
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	logger.Infof("[tts] edge-tts: synthesizing %d characters, voice=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts: create session: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts: start stream: %w", err)
	}

	// Entries with type=="audio" carry MP3 bytes.
	var mp3Buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	if mp3Buf.Len() == 0 {
		return nil, fmt.Errorf("[tts] edge-tts: no audio received")
	}
	logger.Debugf("[tts] edge-tts: received %d bytes of MP3", mp3Buf.Len())

	clip, err := audio.DecodeMP3(ctx, mp3Buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts: %w", err)
	}
	return clip, nil
}
