package driver

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/audio"
	"github.com/user-none/emudriver/backend/testcard"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/state"
)

const testGameID = "card01"

var testMedia = emucore.Media{Name: "card.tc", Data: []byte("TCNT demo"), ID: testGameID}

// fakeClock only moves when slept on or advanced by the test.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept += d
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}

// stuckDevice never drains the ring.
type stuckDevice struct{ volume float64 }

func (s *stuckDevice) Buffered() int         { return 0 }
func (s *stuckDevice) SetVolume(vol float64) { s.volume = vol }
func (s *stuckDevice) Close() error          { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Saves.Dir = t.TempDir()
	cfg.Saves.SaveResumeOnExit = false
	cfg.Rewind.Enabled = true
	cfg.Rewind.FrameStep = 60
	cfg.Rewind.Capacity = 10
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestDriver(t *testing.T, f emucore.Factory, cfg *config.Config, opts ...Option) (*Driver, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	base := []Option{WithoutAudio(), WithClock(clk), WithLogger(quietLogger())}
	d, err := New(f, testMedia, cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, clk
}

func ticks(t *testing.T, d *Driver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, d.tick())
	}
}

func payload(t *testing.T, data []byte) []byte {
	t.Helper()
	snap, err := state.Decode(data)
	require.NoError(t, err)
	return snap.Payload
}

func backendState(t *testing.T, d *Driver) []byte {
	t.Helper()
	s, err := d.backend.SerializeState()
	require.NoError(t, err)
	return s
}

// hookFactory wraps testcard backends so tests can intercept Step. The
// wrapper hides the optional interfaces of the console.
type hookFactory struct {
	testcard.Factory
	step func(b emucore.Backend, in emucore.InputFrame) (emucore.TickResult, error)
}

func (f hookFactory) Create(m emucore.Media, opts map[string]string) (emucore.Backend, error) {
	b, err := f.Factory.Create(m, opts)
	if err != nil {
		return nil, err
	}
	return &hookBackend{Backend: b, step: f.step}, nil
}

type hookBackend struct {
	emucore.Backend
	step func(b emucore.Backend, in emucore.InputFrame) (emucore.TickResult, error)
}

func (h *hookBackend) Step(in emucore.InputFrame) (emucore.TickResult, error) {
	return h.step(h.Backend, in)
}

var errBoom = errors.New("boom")

var _ audio.Device = (*stuckDevice)(nil)
