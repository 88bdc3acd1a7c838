package audio

import "math"

// Resampler converts interleaved stereo int16 samples from a source rate to
// a destination rate with linear interpolation. The fractional read
// position and the last input frame carry over between calls, so splitting
// a stream into batches does not change the output.
type Resampler struct {
	step float64 // source frames consumed per output frame

	// pos is the read position measured from prev (0 == prev, 1 == first
	// frame of the next batch).
	pos          float64
	prevL, prevR float64
	primed       bool
}

// NewResampler creates a resampler from srcRate to dstRate.
func NewResampler(srcRate, dstRate float64) *Resampler {
	rs := &Resampler{}
	rs.SetRatio(srcRate / dstRate)
	return rs
}

// SetRatio sets how many source frames are consumed per output frame.
// The phase is preserved. Non-positive ratios are ignored.
func (rs *Resampler) SetRatio(step float64) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return
	}
	rs.step = step
}

// Ratio returns the current source frames per output frame.
func (rs *Resampler) Ratio() float64 {
	return rs.step
}

// Reset forgets the carried phase and previous frame.
func (rs *Resampler) Reset() {
	rs.pos = 0
	rs.prevL, rs.prevR = 0, 0
	rs.primed = false
}

// Process resamples one batch of interleaved stereo samples and appends the
// packed output frames to out. A trailing odd sample is ignored.
func (rs *Resampler) Process(in []int16, out []uint32) []uint32 {
	n := len(in) / 2
	if n == 0 {
		return out
	}
	if !rs.primed {
		rs.prevL, rs.prevR = float64(in[0]), float64(in[1])
		rs.primed = true
	}

	limit := float64(n)
	for rs.pos < limit {
		idx := int(rs.pos) // 0 selects prev as the left neighbour
		frac := rs.pos - float64(idx)

		var l0, r0 float64
		if idx == 0 {
			l0, r0 = rs.prevL, rs.prevR
		} else {
			l0, r0 = float64(in[(idx-1)*2]), float64(in[(idx-1)*2+1])
		}
		l1, r1 := float64(in[idx*2]), float64(in[idx*2+1])

		l := l0 + (l1-l0)*frac
		r := r0 + (r1-r0)*frac
		out = append(out, PackFrame(clampSample(l), clampSample(r)))

		rs.pos += rs.step
	}

	rs.pos -= limit
	rs.prevL, rs.prevR = float64(in[(n-1)*2]), float64(in[(n-1)*2+1])
	return out
}

func clampSample(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
