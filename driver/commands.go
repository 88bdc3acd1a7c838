package driver

import (
	"errors"
	"fmt"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/input"
	"github.com/user-none/emudriver/state"
)

// fastForwardFallback is the held fast-forward speed when no turbo
// multiplier exceeds normal speed.
const fastForwardFallback = 2.0

// serviceCommands runs the hotkey edges queued by the mapper. Only fatal
// errors are returned; anything else is logged.
func (d *Driver) serviceCommands() error {
	d.cmdBuf = d.mapper.Commands(d.cmdBuf[:0])
	for _, ev := range d.cmdBuf {
		err := d.runCommand(ev)
		if errors.Is(err, emucore.ErrFatal) {
			return err
		}
		if err != nil {
			d.logger.Printf("Hotkey %s failed: %v", ev.Command, err)
		}
	}
	return nil
}

func (d *Driver) runCommand(ev input.CommandEvent) error {
	cmd := ev.Command
	switch cmd.Action {
	case input.ActionRewind:
		d.setRewind(ev.Pressed)
		return nil
	case input.ActionFastForward:
		d.fastForward = ev.Pressed
		d.applySpeed()
		return nil
	}
	if !ev.Pressed {
		return nil
	}

	switch cmd.Action {
	case input.ActionSaveState:
		return d.saveSlot(state.SlotName(d.states.CurrentSlot()))
	case input.ActionLoadState:
		return d.loadSlot(state.SlotName(d.states.CurrentSlot()))
	case input.ActionSaveSlot:
		return d.saveSlot(state.SlotName(cmd.Slot))
	case input.ActionLoadSlot:
		return d.loadSlot(state.SlotName(cmd.Slot))
	case input.ActionNextSlot:
		d.notify(fmt.Sprintf("Slot %d", d.states.NextSlot()))
	case input.ActionPrevSlot:
		d.notify(fmt.Sprintf("Slot %d", d.states.PreviousSlot()))
	case input.ActionPause:
		d.setPaused(!d.ctl.Paused())
	case input.ActionSoftReset:
		return d.reset(false)
	case input.ActionHardReset:
		return d.reset(true)
	case input.ActionSpeedCycle:
		d.cycleTurbo()
	case input.ActionQuit:
		d.ctl.Stop()
	}
	return nil
}

func (d *Driver) notify(msg string) {
	d.message = msg
	d.notice.Store(&msg)
}

// setRewind starts or ends rewind playback. Buffered audio is dropped on
// both edges so old sound does not play over rewound video.
func (d *Driver) setRewind(held bool) {
	if held {
		if !d.states.Enabled() || d.states.Rewinding() {
			return
		}
		d.states.EnterRewind()
		d.rewindHold = 0
		d.engine.Clear()
		d.notify("Rewind")
		return
	}
	if !d.states.Rewinding() {
		return
	}
	d.states.ExitRewind()
	d.engine.Clear()
	d.resync = true
}

func (d *Driver) setPaused(p bool) {
	if !d.ctl.SetPaused(p) {
		return
	}
	if p {
		d.notify("Paused")
	} else {
		d.resync = true
		d.notify("Resumed")
	}
}

func (d *Driver) saveSlot(name string) error {
	if _, err := d.states.SaveSlot(name); err != nil {
		d.notify("Save failed")
		return err
	}
	d.notify("Saved " + name)
	return nil
}

// loadSlot restores a slot. On failure the running state is untouched.
func (d *Driver) loadSlot(name string) error {
	if _, err := d.states.LoadSlot(name); err != nil {
		d.notify("Load failed")
		return err
	}
	d.afterRestore()
	d.notify("Loaded " + name)
	return nil
}

func (d *Driver) afterRestore() {
	d.engine.Clear()
	d.resync = true
	d.render()
}

func (d *Driver) reset(hard bool) error {
	if d.resetter == nil {
		return ErrUnsupported
	}
	if hard {
		d.resetter.HardReset()
		d.notify("Hard reset")
	} else {
		d.resetter.SoftReset()
		d.notify("Reset")
	}
	d.states.Reset()
	d.afterRestore()
	return nil
}

// cycleTurbo advances through the configured turbo multipliers, wrapping
// back to the first.
func (d *Driver) cycleTurbo() {
	d.turbo = (d.turbo + 1) % len(d.cfg.Speed.TurboMultipliers)
	d.applySpeed()
	d.notify(fmt.Sprintf("Speed: %gx", d.effectiveSpeed()))
}

func (d *Driver) effectiveSpeed() float64 {
	turbo := d.cfg.Speed.TurboMultipliers
	if d.fastForward {
		fastest := fastForwardFallback
		for _, m := range turbo {
			if m > fastest {
				fastest = m
			}
		}
		return d.baseSpeed * fastest
	}
	if d.turbo >= len(turbo) {
		d.turbo = 0
	}
	return d.baseSpeed * turbo[d.turbo]
}

// applySpeed pushes the effective speed to the pacer and the audio engine.
// Audio above normal speed is muted when FastForwardMute is set.
func (d *Driver) applySpeed() {
	s := d.effectiveSpeed()
	d.pacer.SetSpeed(s)
	d.engine.SetSpeed(s)
	a := d.cfg.Audio
	d.engine.SetMuted(a.Muted || (a.FastForwardMute && s > 1))
	if d.device != nil {
		d.device.SetVolume(a.Volume)
	}
}

// SaveSlot saves the running state to a named slot.
func (d *Driver) SaveSlot(name string) error {
	return d.do(func() error {
		return d.saveSlot(name)
	})
}

// LoadSlot restores a named slot. A missing, corrupt or incompatible slot
// returns an error and leaves the session running as before.
func (d *Driver) LoadSlot(name string) error {
	return d.do(func() error {
		return d.loadSlot(name)
	})
}

// DeleteSlot removes a named slot.
func (d *Driver) DeleteSlot(name string) error {
	return d.do(func() error {
		return d.states.DeleteSlot(name)
	})
}

// Slots lists the stored slots of the running game.
func (d *Driver) Slots() ([]state.SlotInfo, error) {
	var slots []state.SlotInfo
	err := d.do(func() error {
		var err error
		slots, err = d.states.Slots()
		return err
	})
	return slots, err
}

// Pause holds emulation at the next tick boundary.
func (d *Driver) Pause() error {
	return d.do(func() error {
		d.setPaused(true)
		return nil
	})
}

// Resume continues a paused session.
func (d *Driver) Resume() error {
	return d.do(func() error {
		d.setPaused(false)
		return nil
	})
}

// SetSpeed sets the base speed multiplier: 1 is normal, above 1 fast
// forward, below 1 slow motion. The turbo hotkeys multiply on top of it.
func (d *Driver) SetSpeed(x float64) error {
	if !config.ValidSpeed(x) {
		return fmt.Errorf("speed %.2f out of range 0.1-10.0", x)
	}
	return d.do(func() error {
		d.baseSpeed = x
		d.applySpeed()
		return nil
	})
}

// Reset presses the console reset button, or power-cycles it when hard
// is set. Backends without reset support return ErrUnsupported.
func (d *Driver) Reset(hard bool) error {
	return d.do(func() error {
		return d.reset(hard)
	})
}
