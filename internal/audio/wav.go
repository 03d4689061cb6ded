package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ReadWAV loads a PCM WAV file into memory.
// All failures wrap ErrDecode.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[audio] open %s: %w: %w", path, ErrDecode, err)
	}
	defer f.Close()

	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("[audio] %s: %w", path, err)
	}
	return clip, nil
}

// DecodeWAV decodes a PCM WAV stream.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: unsupported WAV format tag %d, only PCM is supported", ErrDecode, d.WavAudioFormat)
	}
	if !supportedBitDepth(int(d.BitDepth)) {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read PCM data: %w", ErrDecode, err)
	}

	clip := &Clip{
		Samples:    buf.Data,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	if err := clip.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return clip, nil
}

// WriteWAV encodes clip as PCM WAV at path, replacing any existing file.
// The parent directory must already exist. All failures wrap ErrIO.
func WriteWAV(path string, clip *Clip) error {
	if err := clip.validate(); err != nil {
		return fmt.Errorf("[audio] write %s: %w: %w", path, ErrIO, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[audio] create %s: %w: %w", path, ErrIO, err)
	}

	if err := EncodeWAV(f, clip); err != nil {
		f.Close()
		return fmt.Errorf("[audio] %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("[audio] close %s: %w: %w", path, ErrIO, err)
	}
	return nil
}

// EncodeWAV writes clip as PCM WAV to w.
func EncodeWAV(w io.WriteSeeker, clip *Clip) error {
	if err := clip.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	enc := wav.NewEncoder(w, clip.SampleRate, clip.BitDepth, clip.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: clip.Channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           clip.Samples,
		SourceBitDepth: clip.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%w: encode PCM data: %w", ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: finalize WAV header: %w", ErrIO, err)
	}
	return nil
}
