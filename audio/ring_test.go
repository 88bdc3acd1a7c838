package audio

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(vals ...uint32) []uint32 { return vals }

func readAll(t *testing.T, rb *Ring, n int) []uint32 {
	t.Helper()
	out := make([]uint32, n)
	got := rb.ReadFrames(out)
	return out[:got]
}

func TestRing_BasicWriteRead(t *testing.T) {
	rb := NewRing(16)

	dropped := rb.Write(frames(1, 2, 3, 4, 5))
	require.Zero(t, dropped)
	require.Equal(t, 5, rb.Buffered())

	assert.Equal(t, frames(1, 2, 3, 4, 5), readAll(t, rb, 5))
	assert.Zero(t, rb.Buffered())
}

func TestRing_OverflowDropsOldest(t *testing.T) {
	rb := NewRing(8)

	rb.Write(frames(1, 2, 3, 4, 5, 6))
	dropped := rb.Write(frames(7, 8, 9, 10, 11))

	require.Equal(t, 3, dropped)
	require.Equal(t, 8, rb.Buffered())
	assert.Equal(t, frames(4, 5, 6, 7, 8, 9, 10, 11), readAll(t, rb, 8))

	overflows, total, _ := rb.Counters()
	assert.Equal(t, uint64(1), overflows)
	assert.Equal(t, uint64(3), total)
}

func TestRing_OverflowLargerThanCapacity(t *testing.T) {
	rb := NewRing(4)

	dropped := rb.Write(frames(1, 2, 3, 4, 5, 6, 7, 8))

	require.Equal(t, 4, dropped)
	require.Equal(t, 4, rb.Buffered())
	assert.Equal(t, frames(5, 6, 7, 8), readAll(t, rb, 4))
}

func TestRing_WrapAround(t *testing.T) {
	rb := NewRing(8)

	rb.Write(frames(1, 2, 3, 4, 5, 6))
	require.Len(t, readAll(t, rb, 4), 4)

	rb.Write(frames(7, 8, 9, 10, 11))
	require.Equal(t, 7, rb.Buffered())
	assert.Equal(t, frames(5, 6, 7, 8, 9, 10, 11), readAll(t, rb, 7))
}

func TestRing_PartialRead(t *testing.T) {
	rb := NewRing(16)
	rb.Write(frames(1, 2, 3, 4, 5, 6, 7, 8))

	assert.Equal(t, frames(1, 2, 3), readAll(t, rb, 3))
	assert.Equal(t, 5, rb.Buffered())
}

func TestRing_Clear(t *testing.T) {
	rb := NewRing(16)
	rb.Write(frames(1, 2, 3, 4))
	rb.Clear()
	assert.Zero(t, rb.Buffered())
}

func TestRing_SetLimit(t *testing.T) {
	rb := NewRing(16)
	rb.Write(frames(1, 2, 3, 4, 5, 6))

	rb.SetLimit(4)
	require.Equal(t, 4, rb.Limit())
	require.Equal(t, 4, rb.Buffered())
	assert.Equal(t, frames(3, 4, 5, 6), readAll(t, rb, 4))

	rb.SetLimit(100)
	assert.Equal(t, 16, rb.Limit(), "limit is clamped to the allocation")

	rb.SetLimit(0)
	assert.Equal(t, 1, rb.Limit())
}

func TestRing_ReadSilenceOnUnderrun(t *testing.T) {
	rb := NewRing(16)
	rb.Write(frames(PackFrame(100, -100)))

	p := make([]byte, 3*BytesPerFrame)
	for i := range p {
		p[i] = 0xff
	}
	n, err := rb.Read(p)
	require.NoError(t, err)
	require.Equal(t, len(p), n)

	l, r := UnpackFrame(binary.LittleEndian.Uint32(p))
	assert.Equal(t, int16(100), l)
	assert.Equal(t, int16(-100), r)
	assert.Equal(t, make([]byte, 2*BytesPerFrame), p[BytesPerFrame:])

	_, _, underruns := rb.Counters()
	assert.Equal(t, uint64(1), underruns)
}

func TestRing_Close(t *testing.T) {
	rb := NewRing(16)
	rb.Write(frames(1, 2))
	rb.Close()

	p := make([]byte, 2*BytesPerFrame)
	n, err := rb.Read(p)
	require.NoError(t, err, "remaining data is still readable")
	require.Equal(t, len(p), n)

	_, err = rb.Read(p)
	assert.Equal(t, io.EOF, err)
}

func TestRing_WriteAfterClose(t *testing.T) {
	rb := NewRing(16)
	rb.Close()
	rb.Write(frames(1, 2, 3))
	assert.Zero(t, rb.Buffered())
}

func TestRing_PackFrameLittleEndian(t *testing.T) {
	v := PackFrame(0x0102, -2)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	assert.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff}, b)
}

func TestRing_ConcurrentOrdering(t *testing.T) {
	rb := NewRing(64)
	const total = 200000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		batch := make([]uint32, 37)
		next := uint32(1)
		for next <= total {
			n := 0
			for n < len(batch) && next <= total {
				batch[n] = next
				next++
				n++
			}
			rb.Write(batch[:n])
		}
		rb.Close()
	}()

	var received int
	var outOfOrder int
	go func() {
		defer wg.Done()
		buf := make([]uint32, 16)
		var last uint32
		for {
			n := rb.ReadFrames(buf)
			for _, v := range buf[:n] {
				if v <= last {
					outOfOrder++
				}
				last = v
			}
			received += n
			if n == 0 && rb.closed.Load() && rb.Buffered() == 0 {
				return
			}
		}
	}()

	wg.Wait()

	assert.NotZero(t, received)
	assert.LessOrEqual(t, received, total)
	assert.Zero(t, outOfOrder, "frames must be delivered in write order")

	_, dropped, _ := rb.Counters()
	assert.LessOrEqual(t, uint64(received)+dropped, uint64(total))
}
