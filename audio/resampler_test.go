package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start int16) []int16 {
	s := make([]int16, 0, n*2)
	for i := 0; i < n; i++ {
		v := start + int16(i)*10
		s = append(s, v, -v)
	}
	return s
}

func lefts(out []uint32) []int16 {
	ls := make([]int16, len(out))
	for i, v := range out {
		ls[i], _ = UnpackFrame(v)
	}
	return ls
}

func TestResampler_UnityRatio(t *testing.T) {
	rs := NewResampler(48000, 48000)
	out := rs.Process(ramp(4, 10), nil)

	require.Len(t, out, 4)
	// One frame of latency: the first input frame is repeated.
	assert.Equal(t, []int16{10, 10, 20, 30}, lefts(out))

	out = rs.Process(ramp(2, 50), nil)
	assert.Equal(t, []int16{40, 50}, lefts(out))
}

func TestResampler_Upsample2x(t *testing.T) {
	rs := NewResampler(24000, 48000)
	out := rs.Process([]int16{0, 0, 100, -100, 200, -200}, nil)

	require.Len(t, out, 6)
	assert.Equal(t, []int16{0, 0, 0, 50, 100, 150}, lefts(out))

	_, r := UnpackFrame(out[3])
	assert.Equal(t, int16(-50), r, "right channel interpolates independently")
}

func TestResampler_BatchSplitInvariance(t *testing.T) {
	input := ramp(300, -1500)

	whole := NewResampler(36000, 48000)
	expected := whole.Process(input, nil)

	split := NewResampler(36000, 48000)
	var got []uint32
	for _, size := range []int{1, 7, 64, 3, 100, 125} {
		got = split.Process(input[:size*2], got)
		input = input[size*2:]
	}

	assert.Equal(t, expected, got)
}

func TestResampler_PhaseCarriesAcrossBatches(t *testing.T) {
	rs := NewResampler(44100, 48000)
	total := 0
	for i := 0; i < 100; i++ {
		total += len(rs.Process(make([]int16, 735*2), nil))
	}
	// 73500 input frames at 44.1k is 80000 frames at 48k.
	assert.InDelta(t, 80000, total, 1)
}

func TestResampler_SetRatioIgnoresInvalid(t *testing.T) {
	rs := NewResampler(32000, 48000)
	before := rs.Ratio()
	rs.SetRatio(0)
	rs.SetRatio(-1)
	rs.SetRatio(math.NaN())
	rs.SetRatio(math.Inf(1))
	assert.Equal(t, before, rs.Ratio())
}

func TestResampler_ResetDropsPhase(t *testing.T) {
	rs := NewResampler(48000, 48000)
	rs.Process(ramp(4, 10), nil)
	rs.Reset()
	out := rs.Process(ramp(2, 500), nil)
	assert.Equal(t, []int16{500, 500}, lefts(out))
}

func TestResampler_OddSampleIgnored(t *testing.T) {
	rs := NewResampler(48000, 48000)
	assert.Empty(t, rs.Process([]int16{1}, nil))
	assert.Len(t, rs.Process([]int16{1, 2, 3}, nil), 1)
}

func TestClampSample(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), clampSample(40000))
	assert.Equal(t, int16(math.MinInt16), clampSample(-40000))
	assert.Equal(t, int16(3), clampSample(2.5))
}
