package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Channels is fixed by go-mp3, which always emits 16-bit LE stereo.
const mp3Channels = 2

// DecodeMP3 decodes MP3 bytes into a 16-bit stereo Clip.
// ctx is checked between reads so long streams can be abandoned.
func DecodeMP3(ctx context.Context, data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty MP3 data", ErrDecode)
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: MP3 decode: %w", ErrDecode, err)
	}

	pcmBuf := new(bytes.Buffer)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		n, err := decoder.Read(buf)
		pcmBuf.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read MP3 PCM: %w", ErrDecode, err)
		}
	}

	// Drop a trailing partial frame: 2 bytes per sample, 2 channels.
	pcm := pcmBuf.Bytes()
	const bytesPerFrame = 2 * mp3Channels
	pcm = pcm[:len(pcm)/bytesPerFrame*bytesPerFrame]

	return FromInt16(BytesToInt16(pcm), decoder.SampleRate(), mp3Channels), nil
}
