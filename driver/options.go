package driver

import (
	"log"
	"time"

	"github.com/user-none/emudriver/audio"
	"github.com/user-none/emudriver/state"
)

// Clock is the wall clock used for pacing.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// DeviceOpener opens the host audio output for an engine.
type DeviceOpener func(e *audio.Engine, volume float64) (audio.Device, error)

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the logger for non-fatal failures.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStore uses s for slots instead of the store named by the
// configuration. The caller keeps ownership of s.
func WithStore(s state.Store) Option {
	return func(d *Driver) {
		d.store = s
		d.ownsStore = false
	}
}

// WithAudioDevice replaces the host audio device.
func WithAudioDevice(open DeviceOpener) Option {
	return func(d *Driver) {
		d.openDevice = open
	}
}

// WithoutAudio runs without a host device. Audio is still resampled into
// the ring, which drops the oldest frames once full.
func WithoutAudio() Option {
	return func(d *Driver) {
		d.openDevice = nil
	}
}

// WithClock replaces the wall clock used for pacing.
func WithClock(c Clock) Option {
	return func(d *Driver) {
		if c != nil {
			d.clock = c
		}
	}
}
