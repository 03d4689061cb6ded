package audio

import (
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// GainFactor converts a decibel gain to a linear amplitude factor.
func GainFactor(db float64) float64 {
	return math.Pow(10, db/20)
}

// ApplyGain returns a copy of c with every sample scaled by db decibels.
// Samples saturate at the bit depth limits; nothing is normalized.
func ApplyGain(c *Clip, db float64) *Clip {
	out := c.Clone()
	if db == 0 {
		return out
	}

	factor := GainFactor(db)
	min, max := sampleBounds(c.BitDepth)
	for i, s := range c.Samples {
		v := math.Floor(float64(s) * factor)
		if v > float64(max) {
			v = float64(max)
		} else if v < float64(min) {
			v = float64(min)
		}
		out.Samples[i] = int(v)
	}
	return out
}

// Overlay mixes over onto base starting at time zero.
//
// Both clips are first brought to a common format: the highest sample rate,
// channel count and bit depth of the pair. The result always has the
// base's length; any part of over past the end of base is dropped.
// Overlapping samples are summed with saturation.
func Overlay(base, over *Clip) (*Clip, error) {
	if err := base.validate(); err != nil {
		return nil, fmt.Errorf("overlay base: %w", err)
	}
	if err := over.validate(); err != nil {
		return nil, fmt.Errorf("overlay clip: %w", err)
	}

	a, b, err := syncClips(base, over)
	if err != nil {
		return nil, err
	}

	out := a.Clone()
	n := len(out.Samples)
	if len(b.Samples) < n {
		n = len(b.Samples)
	}
	min, max := sampleBounds(out.BitDepth)
	for i := 0; i < n; i++ {
		out.Samples[i] = clamp(out.Samples[i]+b.Samples[i], min, max)
	}
	return out, nil
}

// syncClips converts a and b to their shared widest format.
func syncClips(a, b *Clip) (*Clip, *Clip, error) {
	bits := maxInt(a.BitDepth, b.BitDepth)
	channels := maxInt(a.Channels, b.Channels)
	rate := maxInt(a.SampleRate, b.SampleRate)

	conv := func(c *Clip) (*Clip, error) {
		c = SetBitDepth(c, bits)
		c, err := SetChannels(c, channels)
		if err != nil {
			return nil, err
		}
		return Resample(c, rate)
	}

	sa, err := conv(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := conv(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// SetBitDepth rescales samples to bits by shifting.
func SetBitDepth(c *Clip, bits int) *Clip {
	if c.BitDepth == bits {
		return c
	}
	out := c.Clone()
	out.BitDepth = bits
	shift := bits - c.BitDepth
	for i, s := range c.Samples {
		if shift > 0 {
			out.Samples[i] = s << uint(shift)
		} else {
			out.Samples[i] = s >> uint(-shift)
		}
	}
	return out
}

// SetChannels upmixes a mono clip to n identical channels.
// Any other layout change is rejected.
func SetChannels(c *Clip, n int) (*Clip, error) {
	if c.Channels == n {
		return c, nil
	}
	if c.Channels != 1 {
		return nil, fmt.Errorf("cannot convert %d channels to %d", c.Channels, n)
	}

	out := &Clip{
		Samples:    make([]int, len(c.Samples)*n),
		SampleRate: c.SampleRate,
		Channels:   n,
		BitDepth:   c.BitDepth,
	}
	for i, s := range c.Samples {
		for ch := 0; ch < n; ch++ {
			out.Samples[i*n+ch] = s
		}
	}
	return out, nil
}

// Resample converts c to rate. The output holds exactly
// frames*rate/c.SampleRate frames, aligned so that content keeps its
// position in time.
func Resample(c *Clip, rate int) (*Clip, error) {
	if c.SampleRate == rate {
		return c, nil
	}
	if rate <= 0 || c.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid resample %d->%d Hz", c.SampleRate, rate)
	}

	frames := c.Frames()
	wantFrames := int(int64(frames) * int64(rate) / int64(c.SampleRate))
	out := &Clip{
		Samples:    make([]int, wantFrames*c.Channels),
		SampleRate: rate,
		Channels:   c.Channels,
		BitDepth:   c.BitDepth,
	}
	if frames == 0 {
		return out, nil
	}

	rc := newRateConv(c.SampleRate, rate)
	delay, err := rc.delay()
	if err != nil {
		return nil, err
	}
	// Output index of the first real input frame.
	start := rc.padOut + delay

	min, max := sampleBounds(c.BitDepth)
	scale := float64(max) + 1
	channel := make([]float64, frames)
	for ch := 0; ch < c.Channels; ch++ {
		for i := range channel {
			channel[i] = float64(c.Samples[i*c.Channels+ch]) / scale
		}

		resampled, err := rc.run(channel)
		if err != nil {
			return nil, err
		}

		for i := 0; i < wantFrames; i++ {
			j := start + i
			if j < 0 || j >= len(resampled) {
				continue
			}
			out.Samples[i*c.Channels+ch] = clamp(int(math.Round(resampled[j]*scale)), min, max)
		}
	}
	return out, nil
}

// rateConv resamples one channel at a time. Input is padded at both ends
// by holding the edge samples so the filter has settled history at the
// clip boundaries.
type rateConv struct {
	src, dst int
	padIn    int // input frames added at each end
	padOut   int // padIn expressed in output frames, exact
}

func newRateConv(src, dst int) *rateConv {
	// padIn is a multiple of src/gcd so that padIn*dst/src is whole.
	unit := src / gcd(src, dst)
	want := maxInt(src/10, 256)
	padIn := (want + unit - 1) / unit * unit
	return &rateConv{
		src:    src,
		dst:    dst,
		padIn:  padIn,
		padOut: int(int64(padIn) * int64(dst) / int64(src)),
	}
}

// run pads, resamples and flushes one channel.
func (rc *rateConv) run(channel []float64) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(rc.src),
		OutputRate: float64(rc.dst),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	padded := make([]float64, 0, len(channel)+2*rc.padIn)
	first, last := 0.0, 0.0
	if len(channel) > 0 {
		first, last = channel[0], channel[len(channel)-1]
	}
	for i := 0; i < rc.padIn; i++ {
		padded = append(padded, first)
	}
	padded = append(padded, channel...)
	for i := 0; i < rc.padIn; i++ {
		padded = append(padded, last)
	}

	output, err := r.Process(padded)
	if err != nil {
		return nil, fmt.Errorf("resample %d->%d Hz: %w", rc.src, rc.dst, err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush resampler %d->%d Hz: %w", rc.src, rc.dst, err)
	}
	return append(output, tail...), nil
}

var delayCache sync.Map // [2]int{src, dst} -> int

// delay returns how many output frames the filter shifts content by. It is
// found from the peak of the response to a single impulse and may be
// negative when the engine already trims part of its latency.
func (rc *rateConv) delay() (int, error) {
	key := [2]int{rc.src, rc.dst}
	if d, ok := delayCache.Load(key); ok {
		return d.(int), nil
	}

	impulse := make([]float64, 2*rc.padIn+1)
	impulse[rc.padIn] = 0.5
	resp, err := rc.run(impulse)
	if err != nil {
		return 0, err
	}

	peak, peakAt := 0.0, -1
	for i, v := range resp {
		if math.Abs(v) > peak {
			peak, peakAt = math.Abs(v), i
		}
	}
	if peakAt < 0 {
		return 0, fmt.Errorf("resample %d->%d Hz: no impulse response", rc.src, rc.dst)
	}

	// run adds padIn in front of the impulse's own padIn leading zeros.
	d := peakAt - 2*rc.padOut
	delayCache.Store(key, d)
	return d, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
