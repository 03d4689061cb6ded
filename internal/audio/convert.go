package audio

import (
	"math"
)

// Float32ToInt16 converts samples in [-1.0, 1.0] to PCM int16.
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// BytesToInt16 converts little-endian bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToBytes converts int16 samples to little-endian bytes.
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// FromInt16 wraps interleaved 16-bit PCM as a Clip.
func FromInt16(in []int16, sampleRate, channels int) *Clip {
	samples := make([]int, len(in))
	for i, s := range in {
		samples[i] = int(s)
	}
	return &Clip{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
}

// FromFloat32 wraps interleaved float samples as a 16-bit Clip.
func FromFloat32(in []float32, sampleRate, channels int) *Clip {
	return FromInt16(Float32ToInt16(in), sampleRate, channels)
}

// Int16 returns the clip's samples narrowed or widened to 16 bits.
func (c *Clip) Int16() []int16 {
	c16 := SetBitDepth(c, 16)
	out := make([]int16, len(c16.Samples))
	for i, s := range c16.Samples {
		out[i] = int16(clamp(s, math.MinInt16, math.MaxInt16))
	}
	return out
}
