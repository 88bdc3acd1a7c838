package input

import (
	"sync"

	emucore "github.com/user-none/emudriver/api"
)

// maxQueuedCommands bounds the press events queued between two loop
// iterations. Releases of active chords are always queued, so the queue
// can exceed it by the number of active chords.
const maxQueuedCommands = 64

// Event is a normalized device event.
type Event struct {
	Input   PhysicalInput
	Pressed bool
}

// Mapper holds controller state written by the frontend goroutine and
// read by the run loop. Handle and SetBindings may be called from any
// goroutine; Frame and Commands are called by the run loop once per
// iteration.
type Mapper struct {
	mu       sync.Mutex
	bindings *Bindings
	held     map[PhysicalInput]bool
	active   map[Chord]Command // chords currently firing
	frame    emucore.InputFrame
	queue    []CommandEvent
	overflow int
}

// NewMapper creates a mapper using b. A nil b starts with no bindings.
func NewMapper(b *Bindings) *Mapper {
	if b == nil {
		b = NewBindings()
	}
	return &Mapper{
		bindings: b.Clone(),
		held:     make(map[PhysicalInput]bool),
		active:   make(map[Chord]Command),
	}
}

// Handle applies one device event.
func (m *Mapper) Handle(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Pressed {
		if m.held[ev.Input] {
			return // key repeat
		}
		m.held[ev.Input] = true
		m.pressChords(ev.Input)
	} else {
		if !m.held[ev.Input] {
			return
		}
		delete(m.held, ev.Input)
		m.releaseChords(ev.Input)
	}
	m.rebuildFrame()
}

// pressChords fires the most specific chords completed by in.
func (m *Mapper) pressChords(in PhysicalInput) {
	var best []Chord
	bestLen := 0
	for _, ch := range m.bindings.chordsWith(in) {
		if _, on := m.active[ch]; on || !m.allHeld(ch) {
			continue
		}
		switch {
		case ch.Len() > bestLen:
			best = append(best[:0], ch)
			bestLen = ch.Len()
		case ch.Len() == bestLen:
			best = append(best, ch)
		}
	}
	for _, ch := range best {
		cmd, _ := m.bindings.Hotkey(ch)
		// A dropped press leaves the chord inactive so no orphan release
		// follows it.
		if m.enqueue(CommandEvent{Command: cmd, Pressed: true}) {
			m.active[ch] = cmd
		}
	}
}

func (m *Mapper) releaseChords(in PhysicalInput) {
	for ch, cmd := range m.active {
		if ch.Contains(in) {
			delete(m.active, ch)
			m.enqueue(CommandEvent{Command: cmd, Pressed: false})
		}
	}
}

func (m *Mapper) allHeld(ch Chord) bool {
	for _, in := range ch.inputs[:ch.n] {
		if !m.held[in] {
			return false
		}
	}
	return true
}

func (m *Mapper) enqueue(ev CommandEvent) bool {
	if ev.Pressed && len(m.queue) >= maxQueuedCommands {
		m.overflow++
		return false
	}
	m.queue = append(m.queue, ev)
	return true
}

func (m *Mapper) rebuildFrame() {
	var f emucore.InputFrame
	for in := range m.held {
		if bb, ok := m.bindings.Button(in); ok {
			f.Players[bb.Player] |= 1 << uint(bb.Button)
		}
	}
	m.frame = f
}

// Frame returns the controller state as of now.
func (m *Mapper) Frame() emucore.InputFrame {
	m.mu.Lock()
	f := m.frame
	m.mu.Unlock()
	return f
}

// Commands appends and removes all queued command events in arrival order.
func (m *Mapper) Commands(dst []CommandEvent) []CommandEvent {
	m.mu.Lock()
	dst = append(dst, m.queue...)
	m.queue = m.queue[:0]
	m.mu.Unlock()
	return dst
}

// Dropped returns how many command events were discarded because the
// queue was full.
func (m *Mapper) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overflow
}

// Bindings returns a copy of the active bindings.
func (m *Mapper) Bindings() *Bindings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings.Clone()
}

// SetBindings swaps the bindings atomically. Held chords that no longer
// map to the same command are released.
func (m *Mapper) SetBindings(b *Bindings) {
	nb := b.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindings = nb
	for ch, cmd := range m.active {
		if cur, ok := nb.Hotkey(ch); !ok || cur != cmd {
			delete(m.active, ch)
			m.enqueue(CommandEvent{Command: cmd, Pressed: false})
		}
	}
	m.rebuildFrame()
}

// Reset releases everything, e.g. when the window loses focus.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch, cmd := range m.active {
		delete(m.active, ch)
		m.enqueue(CommandEvent{Command: cmd, Pressed: false})
	}
	clear(m.held)
	m.frame = emucore.InputFrame{}
}
