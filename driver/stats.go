package driver

import (
	"time"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/audio"
)

// SpeedRewind is the speed reported while rewind playback is active.
const SpeedRewind = -1.0

type counters struct {
	Ticks       uint64
	Frames      uint64
	Presented   uint64
	Skipped     uint64
	Resyncs     uint64
	RewindSteps uint64
}

// Stats is a snapshot of the session.
type Stats struct {
	Session     string
	Ticks       uint64 // backend steps
	Frames      uint64 // completed frames
	Presented   uint64
	Skipped     uint64 // frames not presented to catch up
	Resyncs     uint64 // forced timing resynchronizations
	RewindSteps uint64
	Speed       float64
	Paused      bool
	Rewinding   bool
	RewindDepth int // snapshots in the rewind ring
	Slot        int // current numbered slot
	Lag         time.Duration
	Timing      emucore.Timing
	Audio       audio.Stats
	// DroppedCommands counts hotkey edges lost to a full queue.
	DroppedCommands int
	// PendingReplace is set when applied options wait for ReplaceBackend.
	PendingReplace bool
	// Message is the latest user-facing notification.
	Message string
}

// Stats returns a snapshot taken at the next tick boundary. After the run
// loop exits it returns the final snapshot; after a stall, the one the
// loop published at its last completed frame.
func (d *Driver) Stats() Stats {
	var s Stats
	if err := d.do(func() error {
		s = d.snapshotStats()
		return nil
	}); err != nil {
		if final := d.final.Load(); final != nil {
			return *final
		}
	}
	return s
}

func (d *Driver) snapshotStats() Stats {
	c := d.counters
	s := Stats{
		Session:         d.session,
		Ticks:           c.Ticks,
		Frames:          c.Frames,
		Presented:       c.Presented,
		Skipped:         c.Skipped,
		Resyncs:         c.Resyncs,
		RewindSteps:     c.RewindSteps,
		Speed:           d.pacer.Speed(),
		Paused:          d.ctl.Paused(),
		Lag:             d.pacer.Lag(d.clock.Now()),
		Timing:          d.timing,
		DroppedCommands: d.mapper.Dropped(),
		PendingReplace:  d.pendingReplace,
		Message:         d.message,
	}
	if d.states != nil {
		s.Rewinding = d.states.Rewinding()
		s.RewindDepth = d.states.Ring().Count()
		s.Slot = d.states.CurrentSlot()
		if s.Rewinding {
			s.Speed = SpeedRewind
		}
	}
	if d.engine != nil {
		s.Audio = d.engine.Stats()
	}
	return s
}
