package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	rec, err := NewRecorder(path, 48000)
	require.NoError(t, err)

	require.NoError(t, rec.WriteFrames([]uint32{PackFrame(1, -1), PackFrame(1000, -1000)}))
	require.NoError(t, rec.WriteFrames([]uint32{PackFrame(32767, -32768)}))
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	samples, rate, ch, err := ReadWAV(f)
	require.NoError(t, err)
	assert.Equal(t, 48000, rate)
	assert.Equal(t, 2, ch)
	assert.Equal(t, []int16{1, -1, 1000, -1000, 32767, -32768}, samples)
}

func TestNullSink_Drains(t *testing.T) {
	rb := NewRing(48000)
	rb.Write(make([]uint32, 4800))

	s := NewNullSink(rb, 48000, 5*time.Millisecond)
	require.Eventually(t, func() bool { return rb.Buffered() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
	assert.Zero(t, s.Buffered())
}

func TestNullSink_StopsAtEOF(t *testing.T) {
	rb := NewRing(16)
	rb.Close()
	s := NewNullSink(rb, 48000, time.Millisecond)
	require.NoError(t, s.Close())
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, clampVolume(-1))
	assert.Equal(t, 2.0, clampVolume(5))
	assert.Equal(t, 0.5, clampVolume(0.5))
}
