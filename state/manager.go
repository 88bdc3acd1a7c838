package state

import (
	"errors"
	"fmt"

	emucore "github.com/user-none/emudriver/api"
)

var (
	// ErrRewinding is returned by Snapshot while rewind playback is active.
	ErrRewinding = errors.New("rewind playback active")
	// ErrNotRewinding is returned by RewindStep outside rewind playback.
	ErrNotRewinding = errors.New("not in rewind playback")
	// ErrNoBackend is returned before a backend is attached.
	ErrNoBackend = errors.New("no backend attached")
	// ErrNoGame is returned by slot operations without a game ID.
	ErrNoGame = errors.New("no game set")
	// ErrReservedSlot is returned when a snapshot slot operation names the
	// battery save.
	ErrReservedSlot = errors.New("slot name is reserved")
)

// Options configures the rewind history.
type Options struct {
	Enabled   bool
	Capacity  int // snapshots retained
	FrameStep int // capture every N emulated frames
	Compress  bool
}

// Manager owns the rewind ring and slot persistence for one backend.
// It is used only from the run loop goroutine.
type Manager struct {
	store   Store
	backend emucore.Backend
	tag     string
	version uint32
	gameID  string

	ring      *Ring
	enabled   bool
	compress  bool
	rewinding bool

	slot int // current numbered slot for hotkey save/load
}

// NumSlots is the number of numbered slots cycled by hotkeys.
const NumSlots = 10

// NewManager creates a manager. store may be nil, in which case slot
// operations fail and rewind still works.
func NewManager(store Store, opts Options) (*Manager, error) {
	ring := NewRing(opts.Capacity, opts.FrameStep)
	if ring == nil {
		return nil, fmt.Errorf("invalid rewind settings (capacity %d, frame step %d)", opts.Capacity, opts.FrameStep)
	}
	return &Manager{
		store:    store,
		ring:     ring,
		enabled:  opts.Enabled,
		compress: opts.Compress,
	}, nil
}

// Attach binds the manager to a backend. The rewind history is cleared;
// snapshots of a previous backend never survive a switch.
func (m *Manager) Attach(b emucore.Backend, info emucore.SystemInfo, gameID string) {
	m.backend = b
	m.tag = info.Name
	m.version = info.StateVersion
	m.gameID = gameID
	m.rewinding = false
	m.ring.Reset()
}

// Configure applies new rewind settings in place, keeping the newest
// snapshots that fit the new capacity.
func (m *Manager) Configure(opts Options) error {
	if opts.Capacity <= 0 || opts.FrameStep <= 0 {
		return fmt.Errorf("invalid rewind settings (capacity %d, frame step %d)", opts.Capacity, opts.FrameStep)
	}
	m.ring.Resize(opts.Capacity, opts.FrameStep)
	m.enabled = opts.Enabled
	m.compress = opts.Compress
	if !m.enabled {
		m.ring.Reset()
	}
	return nil
}

// Enabled reports whether periodic snapshots are taken.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Ring exposes the rewind history.
func (m *Manager) Ring() *Ring {
	return m.ring
}

// GameID returns the key used for slots.
func (m *Manager) GameID() string {
	return m.gameID
}

// Rewinding reports whether rewind playback is active.
func (m *Manager) Rewinding() bool {
	return m.rewinding
}

// EnterRewind switches to rewind playback; periodic snapshots stop.
func (m *Manager) EnterRewind() {
	m.rewinding = true
}

// ExitRewind returns to forward play. The cadence restarts so the next
// snapshot is a full interval after the restored point.
func (m *Manager) ExitRewind() {
	m.rewinding = false
	m.ring.ResetCadence()
}

// Tick is called once per completed emulated frame and takes a snapshot
// when the cadence is due. Returns whether a snapshot was taken.
func (m *Manager) Tick() (bool, error) {
	if !m.enabled || m.rewinding {
		return false, nil
	}
	if !m.ring.Tick() {
		return false, nil
	}
	if err := m.Snapshot(); err != nil {
		return false, err
	}
	return true, nil
}

// Capture serializes the running backend into the snapshot format.
func (m *Manager) Capture() ([]byte, error) {
	if m.backend == nil {
		return nil, ErrNoBackend
	}
	payload, err := m.backend.SerializeState()
	if err != nil {
		return nil, fmt.Errorf("serialize state: %w", err)
	}
	data, _, err := Encode(m.tag, m.version, payload, m.compress)
	return data, err
}

// Snapshot appends the current state to the rewind ring, evicting the
// oldest entry when full.
func (m *Manager) Snapshot() error {
	if m.rewinding {
		return ErrRewinding
	}
	data, err := m.Capture()
	if err != nil {
		return fmt.Errorf("rewind capture: %w", err)
	}
	m.ring.Push(data)
	return nil
}

// RewindStep pops the most recent snapshot and restores it. When the ring
// is exhausted it returns false and leaves the backend untouched.
func (m *Manager) RewindStep() (bool, error) {
	if !m.rewinding {
		return false, ErrNotRewinding
	}
	data, ok := m.ring.Peek()
	if !ok {
		return false, nil
	}
	if err := m.Restore(data); err != nil {
		return false, err
	}
	m.ring.Pop()
	return true, nil
}

// Restore decodes an encoded snapshot and restores it into the backend.
// The backend is either fully restored or left as it was.
func (m *Manager) Restore(data []byte) error {
	if m.backend == nil {
		return ErrNoBackend
	}
	snap, err := Decode(data)
	if err != nil {
		return err
	}
	if err := snap.Check(m.tag, m.version); err != nil {
		return err
	}

	backup, err := m.backend.SerializeState()
	if err != nil {
		return fmt.Errorf("backup before restore: %w", err)
	}
	if err := m.backend.RestoreState(snap.Payload); err != nil {
		if rbErr := m.backend.RestoreState(backup); rbErr != nil {
			return fmt.Errorf("%w: restore failed (%v), rollback failed: %v", emucore.ErrFatal, err, rbErr)
		}
		return fmt.Errorf("restore state: %w", err)
	}
	return nil
}

// SaveSlot persists the current state to a named slot.
func (m *Manager) SaveSlot(name string) (Header, error) {
	if err := m.checkSlot(name); err != nil {
		return Header{}, err
	}
	if m.backend == nil {
		return Header{}, ErrNoBackend
	}
	payload, err := m.backend.SerializeState()
	if err != nil {
		return Header{}, fmt.Errorf("failed to serialize state: %w", err)
	}
	data, h, err := Encode(m.tag, m.version, payload, m.compress)
	if err != nil {
		return Header{}, err
	}
	if err := m.store.Put(m.gameID, name, data); err != nil {
		return Header{}, err
	}
	return h, nil
}

// LoadSlot restores a named slot. A missing, corrupt or incompatible slot
// fails without touching the backend. On success the rewind history is
// cleared since it no longer leads to the restored state.
func (m *Manager) LoadSlot(name string) (Header, error) {
	if err := m.checkSlot(name); err != nil {
		return Header{}, err
	}
	data, err := m.store.Get(m.gameID, name)
	if err != nil {
		return Header{}, err
	}
	h, _, err := DecodeHeader(data)
	if err != nil {
		return Header{}, err
	}
	if err := m.Restore(data); err != nil {
		return Header{}, err
	}
	m.ring.Reset()
	return h, nil
}

// HasSlot reports whether a slot exists.
func (m *Manager) HasSlot(name string) bool {
	if m.checkSlots() != nil {
		return false
	}
	_, err := m.store.Get(m.gameID, name)
	return err == nil
}

// Slots lists the stored slots of the current game.
func (m *Manager) Slots() ([]SlotInfo, error) {
	if err := m.checkSlots(); err != nil {
		return nil, err
	}
	return m.store.List(m.gameID)
}

// DeleteSlot removes a named slot. The battery save cannot be deleted
// through it.
func (m *Manager) DeleteSlot(name string) error {
	if err := m.checkSlot(name); err != nil {
		return err
	}
	return m.store.Delete(m.gameID, name)
}

// SaveSRAM persists battery-backed RAM. Backends without SRAM are skipped.
func (m *Manager) SaveSRAM(bs emucore.BatterySaver) error {
	if err := m.checkSlots(); err != nil {
		return err
	}
	if !bs.HasSRAM() {
		return nil
	}
	return m.store.Put(m.gameID, SlotSRAM, bs.SRAM())
}

// LoadSRAM restores battery-backed RAM. A missing SRAM slot is not an error.
func (m *Manager) LoadSRAM(bs emucore.BatterySaver) error {
	if err := m.checkSlots(); err != nil {
		return err
	}
	if !bs.HasSRAM() {
		return nil
	}
	data, err := m.store.Get(m.gameID, SlotSRAM)
	if errors.Is(err, ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	bs.SetSRAM(data)
	return nil
}

// CurrentSlot returns the numbered slot used by hotkey save/load.
func (m *Manager) CurrentSlot() int {
	return m.slot
}

// SetSlot selects a numbered slot, wrapping into range.
func (m *Manager) SetSlot(n int) {
	m.slot = ((n % NumSlots) + NumSlots) % NumSlots
}

// NextSlot cycles to the next numbered slot.
func (m *Manager) NextSlot() int {
	m.SetSlot(m.slot + 1)
	return m.slot
}

// PreviousSlot cycles to the previous numbered slot.
func (m *Manager) PreviousSlot() int {
	m.SetSlot(m.slot - 1)
	return m.slot
}

// Reset clears the rewind history.
func (m *Manager) Reset() {
	m.ring.Reset()
}

func (m *Manager) checkSlots() error {
	if m.store == nil {
		return errors.New("no slot store configured")
	}
	if m.gameID == "" {
		return ErrNoGame
	}
	return nil
}

// checkSlot rejects the SRAM slot, which holds raw cartridge RAM rather
// than an encoded snapshot.
func (m *Manager) checkSlot(name string) error {
	if name == SlotSRAM {
		return fmt.Errorf("%w: %q", ErrReservedSlot, name)
	}
	return m.checkSlots()
}
