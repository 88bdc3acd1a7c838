// Package driver runs one emulation backend in real time. A Driver owns
// the backend, the audio engine, the rewind and slot manager and the input
// mapper, and drives them from a single run loop goroutine.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/audio"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/input"
	"github.com/user-none/emudriver/state"
	"github.com/user-none/emudriver/storage"
)

// maxBufferMs is the audio ring allocation; the configured depth can be
// changed up to this bound without reallocating.
const maxBufferMs = 500

// sramFlushInterval limits how often dirty SRAM is written during play.
const sramFlushInterval = time.Second

const (
	phaseIdle int32 = iota
	phaseRunning
	phaseDone
)

type request struct {
	fn   func() error
	done chan error
}

// Driver hosts one backend session.
type Driver struct {
	factory emucore.Factory
	media   emucore.Media
	info    emucore.SystemInfo
	cfg     *config.Config
	current atomic.Pointer[config.Config]

	backend   emucore.Backend
	resetter  emucore.Resetter
	saver     emucore.BatterySaver
	renderer  emucore.FrameRenderer
	timing    emucore.Timing
	clockRate float64

	engine     *audio.Engine
	device     audio.Device
	openDevice DeviceOpener
	recorder   *audio.Recorder

	store     state.Store
	ownsStore bool
	states    *state.Manager

	mapper *input.Mapper
	fb     *Framebuffer

	ctl      *control
	pacer    *pacer
	clock    Clock
	watchdog *watchdog
	logger   *log.Logger
	session  string

	requests   chan request
	phase      atomic.Int32
	idleMu     sync.Mutex
	finished   chan struct{}
	finishOnce sync.Once
	abandoned  atomic.Bool
	final      atomic.Pointer[Stats]
	live       atomic.Pointer[Stats] // published by the loop once per frame
	notice     atomic.Pointer[string]

	// Owned by the run loop.
	counters       counters
	baseSpeed      float64
	turbo          int
	fastForward    bool
	rewindHold     int
	skipped        int
	resync         bool
	sramDirty      bool
	sramSaved      time.Time
	pendingReplace bool
	fatalErr       error
	message        string
	cmdBuf         []input.CommandEvent
}

// New creates the backend for media and everything needed to run it.
// cfg is validated and copied; a nil cfg uses the defaults.
func New(factory emucore.Factory, media emucore.Media, cfg *config.Config, opts ...Option) (*Driver, error) {
	if factory == nil {
		return nil, errors.New("no backend factory")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	info := factory.SystemInfo()
	if err := checkBackendOptions(info, cfg.Backends[info.Name]); err != nil {
		return nil, err
	}
	bindings, err := input.BuildBindings(info.Buttons, cfg.Input.Overrides())
	if err != nil {
		return nil, err
	}

	d := &Driver{
		factory:    factory,
		media:      media,
		info:       info,
		cfg:        cfg,
		openDevice: audio.OpenDevice,
		ownsStore:  true,
		mapper:     input.NewMapper(bindings),
		fb:         NewFramebuffer(info.ScreenWidth, info.MaxScreenHeight),
		ctl:        newControl(),
		clock:      systemClock{},
		watchdog:   newWatchdog(cfg.Pacing.StepDeadline()),
		logger:     log.Default(),
		session:    uuid.NewString(),
		requests:   make(chan request),
		finished:   make(chan struct{}),
		baseSpeed:  cfg.Speed.Multiplier,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.current.Store(cfg)
	d.pacer = newPacer(d.clock, cfg.Pacing.SleepThreshold())

	backend, err := factory.Create(media, cfg.BackendOptions(info.Name, info.DefaultOptions()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", info.Name, err)
	}
	d.setBackend(backend)

	if err := d.init(); err != nil {
		d.closeResources()
		return nil, err
	}
	return d, nil
}

// init opens audio and storage and restores persisted state.
func (d *Driver) init() error {
	if err := d.openAudio(); err != nil {
		return err
	}
	if d.store == nil {
		store, err := OpenStore(d.cfg.Saves)
		if err != nil {
			return fmt.Errorf("failed to open save store: %w", err)
		}
		d.store = store
	}
	states, err := state.NewManager(d.store, d.cfg.Rewind.Options())
	if err != nil {
		return err
	}
	d.states = states
	d.states.Attach(d.backend, d.info, d.media.ID)

	if d.saver != nil {
		if err := d.states.LoadSRAM(d.saver); err != nil {
			d.logger.Printf("SRAM load failed: %v", err)
		}
	}
	if d.cfg.Saves.ResumeOnStart && d.states.HasSlot(state.SlotResume) {
		if _, err := d.states.LoadSlot(state.SlotResume); err != nil {
			if errors.Is(err, emucore.ErrFatal) {
				return err
			}
			d.logger.Printf("Resume load failed: %v", err)
		}
	}
	d.sramSaved = d.clock.Now()
	d.render()
	return nil
}

func (d *Driver) openAudio() error {
	a := d.cfg.Audio
	e, err := audio.NewEngine(a.HostSampleRate, d.backend.AudioSampleRate(),
		audio.DepthForLatency(a.HostSampleRate, maxBufferMs), a.Policy())
	if err != nil {
		return fmt.Errorf("failed to create audio engine: %w", err)
	}
	e.SetDepth(audio.DepthForLatency(a.HostSampleRate, a.BufferMs))
	d.engine = e

	if a.Record != "" {
		rec, err := audio.NewRecorder(a.Record, a.HostSampleRate)
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		d.recorder = rec
		e.SetTap(rec)
	}

	if d.openDevice != nil {
		dev, err := d.openDevice(e, a.Volume)
		if err != nil {
			// Play on without sound.
			d.logger.Printf("Failed to create audio player: %v", err)
		} else {
			d.device = dev
		}
	}
	d.applySpeed()
	return nil
}

// OpenStore opens the slot store described by cfg. An empty Dir means the
// default saves directory.
func OpenStore(cfg config.SavesConfig) (state.Store, error) {
	if cfg.Backend == config.StoreSQLite {
		path := filepath.Join(cfg.Dir, storage.SlotsDBName)
		if cfg.Dir == "" {
			var err error
			if path, err = storage.GetSlotsDBPath(); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		return state.OpenSQLiteStore(path)
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = storage.GetSavesDir(); err != nil {
			return nil, err
		}
	}
	return state.NewFileStore(dir)
}

func (d *Driver) setBackend(b emucore.Backend) {
	d.backend = b
	d.resetter, _ = b.(emucore.Resetter)
	d.saver, _ = b.(emucore.BatterySaver)
	d.renderer, _ = b.(emucore.FrameRenderer)
	d.refreshTiming()
}

func (d *Driver) refreshTiming() {
	d.timing = d.backend.VideoTiming()
	d.clockRate = d.backend.ClockRate()
}

// Run drives the backend until Stop, a quit hotkey, ctx cancellation or a
// fatal error. A fatal error is returned; otherwise nil. On return the
// session has been persisted and every resource released, except when
// the backend stalled: then the stuck goroutine is abandoned and Run
// returns ErrStalled immediately.
func (d *Driver) Run(ctx context.Context) error {
	d.idleMu.Lock()
	if d.phase.Load() != phaseIdle {
		d.idleMu.Unlock()
		return ErrRunning
	}
	d.phase.Store(phaseRunning)
	d.idleMu.Unlock()

	result := make(chan error, 1)
	go func() {
		result <- d.loop(ctx)
	}()

	ticker := time.NewTicker(d.watchdog.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case err := <-result:
			return err
		case now := <-ticker.C:
			if d.watchdog.Expired(now) {
				d.logger.Printf("Backend step exceeded %v, abandoning run loop", d.watchdog.Deadline())
				d.abandoned.Store(true)
				d.ctl.Stop()
				if s := d.live.Load(); s != nil {
					d.final.Store(s)
				}
				d.finish()
				return ErrStalled
			}
		}
	}
}

// Stop asks the run loop to exit at the next tick boundary. It does not
// wait; Run returns once the session is closed.
func (d *Driver) Stop() {
	d.ctl.Stop()
}

// Close releases a driver whose Run was never called. After Run it does
// nothing.
func (d *Driver) Close() {
	d.idleMu.Lock()
	defer d.idleMu.Unlock()
	if d.phase.Load() != phaseIdle {
		return
	}
	d.ctl.Stop()
	d.shutdown(false)
	d.finish()
}

func (d *Driver) finish() {
	d.finishOnce.Do(func() {
		d.phase.Store(phaseDone)
		close(d.finished)
	})
}

// shutdown persists the session and releases resources. Called on the
// goroutine owning the backend.
func (d *Driver) shutdown(saveResume bool) {
	if d.saver != nil {
		d.flushSRAM()
	}
	if saveResume && d.cfg.Saves.SaveResumeOnExit {
		if _, err := d.states.SaveSlot(state.SlotResume); err != nil {
			d.logger.Printf("Resume save failed: %v", err)
		}
	}
	s := d.snapshotStats()
	d.final.Store(&s)
	d.closeResources()
}

func (d *Driver) closeResources() {
	if d.engine != nil {
		d.engine.SetTap(nil)
		d.engine.Close()
	}
	if d.device != nil {
		if err := d.device.Close(); err != nil {
			d.logger.Printf("Audio close failed: %v", err)
		}
		d.device = nil
	}
	if d.recorder != nil {
		if err := d.recorder.Close(); err != nil {
			d.logger.Printf("Recording close failed: %v", err)
		}
		d.recorder = nil
	}
	if d.backend != nil {
		d.backend.Close()
		d.backend = nil
	}
	if d.store != nil && d.ownsStore {
		if err := d.store.Close(); err != nil {
			d.logger.Printf("Save store close failed: %v", err)
		}
	}
	d.store = nil
}

// do runs fn on the run loop goroutine at the next tick boundary and
// returns its result. Before Run, fn runs on the caller's goroutine.
func (d *Driver) do(fn func() error) error {
	d.idleMu.Lock()
	switch d.phase.Load() {
	case phaseIdle:
		defer d.idleMu.Unlock()
		return fn()
	case phaseDone:
		d.idleMu.Unlock()
		return ErrStopped
	}
	d.idleMu.Unlock()

	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-d.finished:
		return ErrStopped
	}
	select {
	case err := <-req.done:
		return err
	case <-d.finished:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Framebuffer returns the presentation boundary the frontend reads.
func (d *Driver) Framebuffer() *Framebuffer {
	return d.fb
}

// Mapper returns the input mapper the frontend feeds device events to.
func (d *Driver) Mapper() *input.Mapper {
	return d.mapper
}

// SystemInfo returns the backend's metadata.
func (d *Driver) SystemInfo() emucore.SystemInfo {
	return d.info
}

// Config returns a copy of the configuration in effect.
func (d *Driver) Config() *config.Config {
	return d.current.Load().Clone()
}

// Session returns the unique ID of this driver instance.
func (d *Driver) Session() string {
	return d.session
}

// Message returns the latest user-facing notification without waiting
// for the run loop.
func (d *Driver) Message() string {
	if m := d.notice.Load(); m != nil {
		return *m
	}
	return ""
}

// GameID returns the save slot identifier of the loaded media.
func (d *Driver) GameID() string {
	return d.media.ID
}
