package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_RejectsBadInput(t *testing.T) {
	_, err := NewEngine(0, 44100, 1024, DefaultPolicy)
	assert.Error(t, err)
	_, err = NewEngine(48000, 44100, 0, DefaultPolicy)
	assert.Error(t, err)
	_, err = NewEngine(48000, 44100, 1024, Policy{LowWater: 0.8, HighWater: 0.2})
	assert.Error(t, err)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy.Validate())
	assert.Error(t, Policy{LowWater: -0.1, HighWater: 0.5}.Validate())
	assert.Error(t, Policy{LowWater: 0.1, HighWater: 1.5}.Validate())
	assert.Error(t, Policy{LowWater: 0.1, HighWater: 0.5, MaxStretch: 0.5}.Validate())
}

func TestEngine_StretchFollowsFill(t *testing.T) {
	e, err := NewEngine(48000, 48000, 4800, DefaultPolicy)
	require.NoError(t, err)

	// Empty buffer: speed production up by the full stretch.
	e.Push(make([]int16, 4000*2))
	st := e.Stats()
	assert.InDelta(t, 1-DefaultPolicy.MaxStretch, st.Stretch, 1e-9)
	assert.Greater(t, st.Buffered, 4000)
	assert.True(t, e.Saturated())

	// Above the high watermark: slow production down.
	e.Push(make([]int16, 10*2))
	assert.InDelta(t, 1+DefaultPolicy.MaxStretch, e.Stats().Stretch, 1e-9)
}

func TestEngine_StretchNeutralAtTarget(t *testing.T) {
	e, err := NewEngine(48000, 48000, 1000, DefaultPolicy)
	require.NoError(t, err)

	e.Ring().Write(make([]uint32, 500))
	e.Push(make([]int16, 2*2))
	assert.InDelta(t, 1.0, e.Stats().Stretch, 1e-9)
}

func TestEngine_OverflowIsAbsorbed(t *testing.T) {
	e, err := NewEngine(48000, 48000, 256, DefaultPolicy)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		e.Push(make([]int16, 200*2))
	}

	st := e.Stats()
	assert.Equal(t, 256, st.Buffered)
	assert.NotZero(t, st.Overflows)
	assert.NotZero(t, st.Dropped)
	assert.Equal(t, st.Pushed, uint64(st.Buffered)+st.Dropped)
}

func TestEngine_UnderflowProducesSilence(t *testing.T) {
	e, err := NewEngine(48000, 48000, 256, DefaultPolicy)
	require.NoError(t, err)

	p := make([]byte, 64)
	n, err := e.Reader().Read(p)
	require.NoError(t, err)
	assert.Equal(t, len(p), n)
	assert.Equal(t, make([]byte, 64), p)
	assert.Equal(t, uint64(1), e.Stats().Underruns)
}

func TestEngine_SpeedScalesOutput(t *testing.T) {
	e, err := NewEngine(48000, 48000, 1<<16, Policy{LowWater: 0, HighWater: 1, MaxStretch: 0})
	require.NoError(t, err)

	e.SetSpeed(2)
	e.Push(make([]int16, 1000*2))
	assert.InDelta(t, 500, e.Stats().Buffered, 1)
}

func TestEngine_SourceRateChange(t *testing.T) {
	e, err := NewEngine(48000, 48000, 1<<16, Policy{LowWater: 0, HighWater: 1, MaxStretch: 0})
	require.NoError(t, err)

	e.SetSourceRate(24000)
	assert.Equal(t, 24000, e.Stats().SourceRate)
	e.Push(make([]int16, 100*2))
	assert.InDelta(t, 200, e.Stats().Buffered, 1)

	e.SetSourceRate(0)
	assert.Equal(t, 24000, e.Stats().SourceRate, "invalid rates are ignored")
}

func TestEngine_MutedDiscards(t *testing.T) {
	e, err := NewEngine(48000, 48000, 1024, DefaultPolicy)
	require.NoError(t, err)

	e.SetMuted(true)
	e.Push(make([]int16, 100*2))
	assert.Zero(t, e.Stats().Buffered)

	e.SetMuted(false)
	e.Push(make([]int16, 100*2))
	assert.NotZero(t, e.Stats().Buffered)
}

func TestEngine_ClearAndDepth(t *testing.T) {
	e, err := NewEngine(48000, 48000, 4096, DefaultPolicy)
	require.NoError(t, err)

	e.Push(make([]int16, 1000*2))
	e.Clear()
	assert.Zero(t, e.Stats().Buffered)

	e.SetDepth(DepthForLatency(48000, 10))
	assert.Equal(t, 480, e.Stats().Limit)
}

type recordingTap struct {
	frames int
	err    error
}

func (r *recordingTap) WriteFrames(f []uint32) error {
	r.frames += len(f)
	return r.err
}

func TestEngine_Tap(t *testing.T) {
	e, err := NewEngine(48000, 48000, 4096, Policy{LowWater: 0, HighWater: 1, MaxStretch: 0})
	require.NoError(t, err)

	tap := &recordingTap{}
	e.SetTap(tap)
	e.Push(make([]int16, 100*2))
	assert.Equal(t, 100, tap.frames)

	tap.err = errors.New("disk full")
	e.Push(make([]int16, 100*2))
	e.Push(make([]int16, 100*2))
	assert.Equal(t, 200, tap.frames, "a failing tap is detached")
	assert.Equal(t, 300, e.Stats().Buffered)
}
