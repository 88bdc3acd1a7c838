package state

// Ring is the rewind history: a fixed-capacity FIFO of encoded snapshots.
// Entries are appended every frameStep emulated frames and popped most
// recent first while rewinding.
type Ring struct {
	buffer    [][]byte // ring slots
	head      int      // next write position
	count     int      // number of valid entries
	capacity  int
	frameStep int // capture every N frames
	frameTick int // frames since the last capture
}

// NewRing allocates a ring of capacity entries captured every frameStep
// frames. Returns nil for non-positive arguments.
func NewRing(capacity, frameStep int) *Ring {
	if capacity <= 0 || frameStep <= 0 {
		return nil
	}
	return &Ring{
		buffer:    make([][]byte, capacity),
		capacity:  capacity,
		frameStep: frameStep,
	}
}

// Tick advances the cadence counter by one completed frame and reports
// whether a capture is due.
func (r *Ring) Tick() bool {
	r.frameTick++
	if r.frameTick < r.frameStep {
		return false
	}
	r.frameTick = 0
	return true
}

// Push appends an entry, evicting the oldest when full.
func (r *Ring) Push(data []byte) {
	r.buffer[r.head] = data
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// Pop removes and returns the most recent entry.
func (r *Ring) Pop() ([]byte, bool) {
	if r.count == 0 {
		return nil, false
	}
	r.head = (r.head - 1 + r.capacity) % r.capacity
	data := r.buffer[r.head]
	r.buffer[r.head] = nil
	r.count--
	return data, true
}

// Peek returns the most recent entry without removing it.
func (r *Ring) Peek() ([]byte, bool) {
	if r.count == 0 {
		return nil, false
	}
	return r.buffer[(r.head-1+r.capacity)%r.capacity], true
}

// Entries returns the retained entries, oldest first.
func (r *Ring) Entries() [][]byte {
	out := make([][]byte, 0, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		out = append(out, r.buffer[(start+i)%r.capacity])
	}
	return out
}

// Resize changes capacity and cadence, keeping the newest entries that
// still fit. The cadence counter restarts.
func (r *Ring) Resize(capacity, frameStep int) {
	if capacity <= 0 || frameStep <= 0 {
		return
	}
	entries := r.Entries()
	if len(entries) > capacity {
		entries = entries[len(entries)-capacity:]
	}
	r.buffer = make([][]byte, capacity)
	r.capacity = capacity
	r.frameStep = frameStep
	r.frameTick = 0
	r.head = 0
	r.count = 0
	for _, e := range entries {
		r.Push(e)
	}
}

// Reset clears the buffer and the cadence counter.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
	r.frameTick = 0
	for i := range r.buffer {
		r.buffer[i] = nil
	}
}

// ResetCadence restarts the frame counter without dropping entries.
func (r *Ring) ResetCadence() {
	r.frameTick = 0
}

// Count returns the number of valid entries in the buffer.
func (r *Ring) Count() int {
	return r.count
}

// Capacity returns the maximum number of entries the buffer can hold.
func (r *Ring) Capacity() int {
	return r.capacity
}

// FrameStep returns the capture cadence in frames.
func (r *Ring) FrameStep() int {
	return r.frameStep
}

// Bytes returns the memory held by retained entries.
func (r *Ring) Bytes() int {
	n := 0
	for _, e := range r.buffer {
		n += len(e)
	}
	return n
}

// StepsForHold returns the number of rewind steps to take on a frame where
// the rewind control has been held for holdFrames frames. Rewinding starts
// slowly and accelerates the longer it is held.
//
// Hold Duration (frames) | Steps  | Effective rate
// 1 (just pressed)       | 1      | single step
// 2-15 (~0.25s)          | 0 or 1 | ~15/sec (every 4th frame)
// 16-30 (~0.5s)          | 0 or 1 | ~30/sec (every 2nd frame)
// 31-60 (~1s)            | 1      | 60/sec (every frame)
// 61+ (>1s)              | 2      | 120/sec
func StepsForHold(holdFrames int) int {
	switch {
	case holdFrames <= 0:
		return 0
	case holdFrames == 1:
		return 1
	case holdFrames <= 15:
		if holdFrames%4 == 0 {
			return 1
		}
		return 0
	case holdFrames <= 30:
		if holdFrames%2 == 0 {
			return 1
		}
		return 0
	case holdFrames <= 60:
		return 1
	default:
		return 2
	}
}
