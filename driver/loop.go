package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/state"
)

// pausePoll is how long a paused loop waits between checks.
const pausePoll = 10 * time.Millisecond

// loop runs on a dedicated goroutine. It steps the backend, queues audio,
// publishes frames and paces itself against the wall clock.
func (d *Driver) loop(ctx context.Context) (err error) {
	defer func() {
		if d.abandoned.Load() {
			// Run already returned ErrStalled; release without persisting
			// state from a backend that stopped responding.
			d.closeResources()
			return
		}
		d.shutdown(err == nil)
		d.finish()
	}()

	d.pacer.Resync()
	for {
		if !d.ctl.ShouldRun() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if d.ctl.Paused() {
			d.waitPaused(ctx)
			if err := d.serviceCommands(); err != nil {
				return err
			}
			if d.fatalErr != nil {
				return d.fatalErr
			}
			continue
		}

		d.serviceRequests()
		if err := d.serviceCommands(); err != nil {
			return err
		}
		if d.fatalErr != nil {
			return d.fatalErr
		}
		if !d.ctl.ShouldRun() || d.ctl.Paused() {
			continue
		}

		if d.states.Rewinding() {
			if err := d.rewindFrame(); err != nil {
				return err
			}
			continue
		}
		if err := d.tick(); err != nil {
			d.logger.Printf("Emulation halted: %v", err)
			return err
		}
	}
}

// waitPaused blocks for one poll interval or until a request, stop or
// cancellation arrives.
func (d *Driver) waitPaused(ctx context.Context) {
	d.resync = true
	timer := time.NewTimer(pausePoll)
	defer timer.Stop()
	select {
	case req := <-d.requests:
		d.serve(req)
	case <-ctx.Done():
	case <-d.ctl.Done():
	case <-timer.C:
	}
}

// serviceRequests runs every API request already queued.
func (d *Driver) serviceRequests() {
	for {
		select {
		case req := <-d.requests:
			d.serve(req)
		default:
			return
		}
	}
}

func (d *Driver) serve(req request) {
	err := req.fn()
	if errors.Is(err, emucore.ErrFatal) && d.fatalErr == nil {
		d.fatalErr = err
	}
	req.done <- err
}

// tick performs one backend step and everything that follows from it.
func (d *Driver) tick() error {
	d.applyResync()

	in := d.mapper.Frame()
	d.watchdog.Begin(time.Now())
	res, err := d.backend.Step(in)
	d.watchdog.End()
	if err != nil {
		return fatal(fmt.Errorf("backend step: %w", err))
	}
	d.counters.Ticks++

	d.engine.Push(res.Audio)
	d.pacer.Advance(res.Cycles, d.clockRate)
	now := d.clock.Now()

	if res.FrameReady {
		d.counters.Frames++
		d.presentOrSkip(res.Frame, now)
	}
	d.handleEvents(res.Events, now)

	if res.FrameReady {
		if _, err := d.states.Tick(); err != nil {
			if errors.Is(err, emucore.ErrFatal) {
				return err
			}
			d.logger.Printf("Rewind snapshot failed: %v", err)
		}
		s := d.snapshotStats()
		d.live.Store(&s)
	}

	d.pacer.Wait(now)
	return nil
}

// presentOrSkip applies the frame drop policy. When emulation trails the
// wall clock by more than a frame, a saturated audio buffer means the
// backlog is not worth catching up and timing is resynchronized at once.
// Otherwise up to MaxFrameSkip frames in a row go unpresented before
// timing is forcibly resynchronized.
func (d *Driver) presentOrSkip(f *emucore.Frame, now time.Time) {
	frameTime := time.Duration(float64(d.timing.FrameDuration()) / d.pacer.Speed())
	if d.pacer.Lag(now) <= frameTime {
		d.skipped = 0
		d.present(f)
		return
	}
	switch {
	case d.device != nil && d.engine.Saturated():
		d.resyncNow()
	case d.skipped < d.cfg.Pacing.MaxFrameSkip:
		d.skipped++
		d.counters.Skipped++
		return
	default:
		d.resyncNow()
	}
	d.present(f)
}

// applyResync honors a resync requested since the last step.
func (d *Driver) applyResync() {
	if d.resync {
		d.pacer.Resync()
		d.skipped = 0
		d.resync = false
	}
}

func (d *Driver) resyncNow() {
	d.pacer.Resync()
	d.skipped = 0
	d.counters.Resyncs++
}

func (d *Driver) present(f *emucore.Frame) {
	if f == nil && d.renderer != nil {
		f = d.renderer.RenderFrame()
	}
	if f == nil {
		return
	}
	d.fb.Update(f)
	d.counters.Presented++
}

// render refreshes the display from backend state after a restore.
func (d *Driver) render() {
	if d.renderer != nil {
		d.present(d.renderer.RenderFrame())
	}
}

func (d *Driver) handleEvents(events []emucore.Event, now time.Time) {
	for _, ev := range events {
		switch ev.Kind {
		case emucore.EventTimingChanged:
			d.refreshTiming()
		case emucore.EventSampleRateChanged:
			d.engine.SetSourceRate(d.backend.AudioSampleRate())
		case emucore.EventSRAMDirty:
			d.sramDirty = true
		}
	}
	if d.sramDirty && now.Sub(d.sramSaved) >= sramFlushInterval {
		d.flushSRAM()
	}
}

func (d *Driver) flushSRAM() {
	d.sramDirty = false
	d.sramSaved = d.clock.Now()
	if d.saver == nil {
		return
	}
	if err := d.states.SaveSRAM(d.saver); err != nil {
		d.logger.Printf("SRAM save failed: %v", err)
	}
}

// rewindFrame plays one frame of rewind: restores zero or more snapshots
// depending on how long rewind has been held, shows the result and waits
// one frame time.
func (d *Driver) rewindFrame() error {
	d.applyResync()
	d.rewindHold++
	steps := state.StepsForHold(d.rewindHold)
	for i := 0; i < steps; i++ {
		ok, err := d.states.RewindStep()
		if err != nil {
			if errors.Is(err, emucore.ErrFatal) {
				return err
			}
			d.logger.Printf("Rewind step failed: %v", err)
			break
		}
		if !ok {
			break
		}
		d.counters.RewindSteps++
	}
	if steps > 0 {
		d.render()
	}
	d.pacer.AdvanceDuration(d.timing.FrameDuration())
	d.pacer.Wait(d.clock.Now())
	return nil
}
