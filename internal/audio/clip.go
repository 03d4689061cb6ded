package audio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDecode marks input that is missing, unreadable or not valid PCM WAV.
	ErrDecode = errors.New("audio: decode failed")
	// ErrIO marks output that could not be written.
	ErrIO = errors.New("audio: write failed")
)

// Clip is a decoded PCM buffer held in memory.
// Samples are interleaved signed integers scaled to BitDepth.
type Clip struct {
	Samples    []int
	SampleRate int
	Channels   int
	BitDepth   int
}

// Silent returns d of digital silence in the given format.
// The frame count is rounded down.
func Silent(d time.Duration, sampleRate, channels, bitDepth int) *Clip {
	frames := int(int64(sampleRate) * int64(d) / int64(time.Second))
	if frames < 0 {
		frames = 0
	}
	return &Clip{
		Samples:    make([]int, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
	}
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Peak returns the largest absolute sample value.
func (c *Clip) Peak() int {
	peak := 0
	for _, s := range c.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Clone returns a deep copy.
func (c *Clip) Clone() *Clip {
	out := *c
	out.Samples = append([]int(nil), c.Samples...)
	return &out
}

// String describes the clip format for log lines.
func (c *Clip) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit %v", c.SampleRate, c.Channels, c.BitDepth, c.Duration())
}

func (c *Clip) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", c.Channels)
	}
	if !supportedBitDepth(c.BitDepth) {
		return fmt.Errorf("unsupported bit depth %d", c.BitDepth)
	}
	if len(c.Samples)%c.Channels != 0 {
		return fmt.Errorf("%d samples is not a whole number of %d-channel frames", len(c.Samples), c.Channels)
	}
	return nil
}

func supportedBitDepth(bits int) bool {
	return bits == 16 || bits == 24 || bits == 32
}

// sampleBounds returns the signed range of a bit depth.
func sampleBounds(bitDepth int) (min, max int) {
	max = 1<<(bitDepth-1) - 1
	min = -(1 << (bitDepth - 1))
	return min, max
}

func clamp(v, min, max int) int {
	if v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}
