package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	emucore "github.com/user-none/emudriver/api"
)

// counterBackend is a minimal backend whose whole state is one counter.
type counterBackend struct {
	counter uint64

	// partialRestore makes RestoreState scribble over the counter before
	// failing, like a backend that applies half a state.
	partialRestore bool
	restoreCalls   int

	sram    []byte
	hasSRAM bool
}

var counterInfo = emucore.SystemInfo{Name: "counter", StateVersion: 3}

func (b *counterBackend) Step(emucore.InputFrame) (emucore.TickResult, error) {
	b.counter++
	return emucore.TickResult{Cycles: 1, FrameReady: true}, nil
}

func (b *counterBackend) ClockRate() float64 { return 60 }
func (b *counterBackend) VideoTiming() emucore.Timing { return emucore.Timing{FPS: 60} }
func (b *counterBackend) AudioSampleRate() int { return 48000 }
func (b *counterBackend) ApplyOptions(map[string]string) error { return nil }
func (b *counterBackend) Close() {}

func (b *counterBackend) SerializeState() ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, b.counter)
	return buf, nil
}

func (b *counterBackend) RestoreState(data []byte) error {
	b.restoreCalls++
	if b.partialRestore {
		b.partialRestore = false
		b.counter = 0xdead
		return errors.New("half applied")
	}
	if len(data) != 8 {
		return fmt.Errorf("%w: %d bytes", emucore.ErrStateCorrupt, len(data))
	}
	b.counter = binary.LittleEndian.Uint64(data)
	return nil
}

func (b *counterBackend) HasSRAM() bool { return b.hasSRAM }
func (b *counterBackend) SRAM() []byte { return b.sram }
func (b *counterBackend) SetSRAM(d []byte) { b.sram = append([]byte(nil), d...) }

// memStore is an in-memory Store.
type memStore struct {
	slots map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{slots: make(map[string][]byte)}
}

func (s *memStore) Put(gameID, name string, data []byte) error {
	s.slots[gameID+"/"+name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Get(gameID, name string) ([]byte, error) {
	d, ok := s.slots[gameID+"/"+name]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return d, nil
}

func (s *memStore) List(string) ([]SlotInfo, error) { return nil, nil }

func (s *memStore) Delete(gameID, name string) error {
	delete(s.slots, gameID+"/"+name)
	return nil
}

func (s *memStore) Close() error { return nil }
