// Package audio bridges backend-rate sample batches to a fixed-rate host
// audio device.
//
// The run loop is the only producer and the host audio callback the only
// consumer. Neither side ever blocks on the other: the producer drops the
// oldest unread audio when the buffer is full and the consumer emits
// silence when it is empty.
package audio

import (
	"encoding/binary"
	"io"
	"sync/atomic"
)

// BytesPerFrame is the size of one S16LE stereo frame on the host side.
const BytesPerFrame = 4

// maxReadRetries bounds how often a consumer read restarts after the
// producer dropped frames underneath it.
const maxReadRetries = 4

// PackFrame packs a stereo sample pair into the ring's slot format.
// The packed value is the little-endian S16LE encoding of the frame.
func PackFrame(l, r int16) uint32 {
	return uint32(uint16(l)) | uint32(uint16(r))<<16
}

// UnpackFrame splits a packed frame into its left and right samples.
func UnpackFrame(v uint32) (l, r int16) {
	return int16(uint16(v)), int16(uint16(v >> 16))
}

// Ring is a bounded single-producer/single-consumer queue of stereo
// frames. Slots and cursors are accessed atomically so that neither side
// takes a lock.
//
// The cursors are monotonic frame counters. The producer only moves the
// read cursor forward (to drop the oldest frames) before it overwrites the
// slots those frames occupied; a consumer that loses that race discards
// what it copied and retries.
type Ring struct {
	slots []atomic.Uint32
	size  uint64
	limit atomic.Uint64

	readPos  atomic.Uint64
	writePos atomic.Uint64
	closed   atomic.Bool

	// Producer-side counters.
	overflows atomic.Uint64
	dropped   atomic.Uint64
	// Consumer-side counters.
	underruns atomic.Uint64

	scratch []uint32 // consumer-owned
}

// NewRing allocates a ring holding up to size frames. The limit starts at
// size. A size below 1 is raised to 1.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	rb := &Ring{
		slots: make([]atomic.Uint32, size),
		size:  uint64(size),
	}
	rb.limit.Store(uint64(size))
	return rb
}

// Size returns the allocated capacity in frames.
func (rb *Ring) Size() int {
	return int(rb.size)
}

// Limit returns the configured capacity in frames.
func (rb *Ring) Limit() int {
	return int(rb.limit.Load())
}

// SetLimit sets the configured capacity, clamped to [1, Size]. Frames
// beyond the new limit are dropped oldest first. Producer side only.
func (rb *Ring) SetLimit(frames int) {
	if frames < 1 {
		frames = 1
	}
	if uint64(frames) > rb.size {
		frames = int(rb.size)
	}
	rb.limit.Store(uint64(frames))
	rb.dropTo(rb.writePos.Load(), uint64(frames))
}

// Buffered returns the number of unread frames.
func (rb *Ring) Buffered() int {
	w := rb.writePos.Load()
	r := rb.readPos.Load()
	if r >= w {
		return 0
	}
	return int(w - r)
}

// Write appends frames, dropping the oldest unread frames if the limit
// would be exceeded. It never blocks and returns the number of frames
// dropped. Writes after Close are ignored. Producer side only.
func (rb *Ring) Write(frames []uint32) int {
	if rb.closed.Load() || len(frames) == 0 {
		return 0
	}

	limit := rb.limit.Load()
	dropped := 0
	n := uint64(len(frames))
	if n > limit {
		// Only the newest limit frames can ever be read.
		dropped = int(n - limit)
		frames = frames[n-limit:]
		n = limit
	}

	w := rb.writePos.Load()
	dropped += rb.dropTo(w+n, limit)
	if dropped > 0 {
		rb.overflows.Add(1)
		rb.dropped.Add(uint64(dropped))
	}

	for i, v := range frames {
		rb.slots[(w+uint64(i))%rb.size].Store(v)
	}
	rb.writePos.Store(w + n)
	return dropped
}

// dropTo advances the read cursor so that at most limit frames remain
// before end. Returns the number of frames dropped.
func (rb *Ring) dropTo(end, limit uint64) int {
	if end <= limit {
		return 0
	}
	need := end - limit
	for {
		r := rb.readPos.Load()
		if r >= need {
			return 0
		}
		if rb.readPos.CompareAndSwap(r, need) {
			return int(need - r)
		}
	}
}

// Clear drops all unread frames. Producer side only.
func (rb *Ring) Clear() {
	w := rb.writePos.Load()
	for {
		r := rb.readPos.Load()
		if r >= w || rb.readPos.CompareAndSwap(r, w) {
			return
		}
	}
}

// ReadFrames copies up to len(dst) unread frames into dst and returns how
// many were copied. It never blocks. Consumer side only.
func (rb *Ring) ReadFrames(dst []uint32) int {
	for attempt := 0; attempt < maxReadRetries; attempt++ {
		r := rb.readPos.Load()
		w := rb.writePos.Load()
		if r >= w {
			return 0
		}
		k := w - r
		if k > uint64(len(dst)) {
			k = uint64(len(dst))
		}
		for i := uint64(0); i < k; i++ {
			dst[i] = rb.slots[(r+i)%rb.size].Load()
		}
		if rb.readPos.CompareAndSwap(r, r+k) {
			return int(k)
		}
		// The producer dropped frames while we copied; what we hold may
		// contain overwritten slots.
	}
	return 0
}

// Read implements io.Reader for the host device, producing S16LE stereo
// bytes. Missing frames are filled with silence so the device never
// stalls; after Close, Read returns io.EOF once the ring is drained.
// Consumer side only.
func (rb *Ring) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if rb.closed.Load() && rb.Buffered() == 0 {
		return 0, io.EOF
	}

	want := len(p) / BytesPerFrame
	if cap(rb.scratch) < want {
		rb.scratch = make([]uint32, want)
	}
	buf := rb.scratch[:want]
	n := rb.ReadFrames(buf)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame:], buf[i])
	}
	if n < want {
		rb.underruns.Add(1)
	}
	clear(p[n*BytesPerFrame:])
	return len(p), nil
}

// Close stops accepting writes. Readers drain what remains, then get io.EOF.
func (rb *Ring) Close() {
	rb.closed.Store(true)
}

// Counters returns the overflow events, dropped frames and underrun events
// recorded so far.
func (rb *Ring) Counters() (overflows, dropped, underruns uint64) {
	return rb.overflows.Load(), rb.dropped.Load(), rb.underruns.Load()
}
