package driver

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/audio"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/input"
)

// ApplyOutcome is the result of ApplyConfig.
type ApplyOutcome int

const (
	// OutcomeRejected means the configuration was invalid and nothing
	// changed.
	OutcomeRejected ApplyOutcome = iota
	// OutcomeApplied means every change took effect.
	OutcomeApplied
	// OutcomeReplaceRequired means some backend options only take effect
	// through ReplaceBackend. Everything else was applied.
	OutcomeReplaceRequired
)

func (o ApplyOutcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeReplaceRequired:
		return "replace-required"
	default:
		return "rejected"
	}
}

// checkBackendOptions validates configured options against the backend's
// declared core options.
func checkBackendOptions(info emucore.SystemInfo, opts map[string]string) error {
	var problems []string
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := opts[k]
		opt, ok := info.Option(k)
		if !ok {
			problems = append(problems, fmt.Sprintf("backends.%s.%s: unknown option", info.Name, k))
			continue
		}
		if !validOptionValue(opt, v) {
			problems = append(problems, fmt.Sprintf("backends.%s.%s: %q is not a valid value", info.Name, k, v))
		}
	}
	if len(problems) > 0 {
		return &config.RejectionError{Problems: problems}
	}
	return nil
}

func validOptionValue(opt emucore.CoreOption, v string) bool {
	switch opt.Type {
	case emucore.CoreOptionBool:
		return v == "true" || v == "false"
	case emucore.CoreOptionSelect:
		return slices.Contains(opt.Values, v)
	case emucore.CoreOptionRange:
		n, err := strconv.ParseFloat(v, 64)
		return err == nil && n >= float64(opt.Min) && n <= float64(opt.Max)
	}
	return true
}

// ApplyConfig replaces the configuration at the next tick boundary. An
// invalid configuration returns OutcomeRejected with a
// *config.RejectionError and the configuration in effect is kept.
func (d *Driver) ApplyConfig(cfg *config.Config) (ApplyOutcome, error) {
	if err := config.Validate(cfg); err != nil {
		return OutcomeRejected, err
	}
	next := cfg.Clone()
	if err := checkBackendOptions(d.info, next.Backends[d.info.Name]); err != nil {
		return OutcomeRejected, err
	}
	bindings, err := input.BuildBindings(d.info.Buttons, next.Input.Overrides())
	if err != nil {
		return OutcomeRejected, &config.RejectionError{Problems: []string{err.Error()}}
	}

	outcome := OutcomeRejected
	err = d.do(func() error {
		outcome = d.applyConfig(next, bindings)
		return nil
	})
	if err != nil {
		return OutcomeRejected, err
	}
	return outcome, nil
}

// applyConfig swaps in a validated configuration. Runs on the loop.
func (d *Driver) applyConfig(next *config.Config, bindings *input.Bindings) ApplyOutcome {
	prev := d.cfg
	if next.Audio.HostSampleRate != prev.Audio.HostSampleRate {
		d.logger.Printf("Host sample rate %d Hz takes effect on restart", next.Audio.HostSampleRate)
	}
	if next.Audio.Record != prev.Audio.Record {
		d.logger.Printf("Audio recording changes take effect on restart")
	}
	if next.Saves != prev.Saves {
		d.logger.Printf("Save store changes take effect on restart")
	}

	d.cfg = next
	d.current.Store(next)

	a := next.Audio
	if err := d.engine.SetPolicy(a.Policy()); err != nil {
		d.logger.Printf("Audio policy not applied: %v", err)
	}
	d.engine.SetDepth(audio.DepthForLatency(d.engine.HostRate(), a.BufferMs))

	if next.Speed.Multiplier != prev.Speed.Multiplier {
		d.baseSpeed = next.Speed.Multiplier
	}
	if !slices.Equal(next.Speed.TurboMultipliers, prev.Speed.TurboMultipliers) {
		d.turbo = 0
	}
	d.applySpeed()

	if err := d.states.Configure(next.Rewind.Options()); err != nil {
		d.logger.Printf("Rewind settings not applied: %v", err)
	}
	if !next.Rewind.Enabled && d.states.Rewinding() {
		d.setRewind(false)
	}

	d.mapper.SetBindings(bindings)
	d.pacer.SetThreshold(next.Pacing.SleepThreshold())
	d.watchdog.SetDeadline(next.Pacing.StepDeadline())

	if d.applyBackendOptions(prev, next) {
		d.pendingReplace = true
	}
	if d.pendingReplace {
		return OutcomeReplaceRequired
	}
	return OutcomeApplied
}

// applyBackendOptions hands changed options to the running backend.
// Returns true if any change needs a new backend instance.
func (d *Driver) applyBackendOptions(prev, next *config.Config) bool {
	defaults := d.info.DefaultOptions()
	before := prev.BackendOptions(d.info.Name, defaults)
	after := next.BackendOptions(d.info.Name, defaults)

	reload := false
	live := make(map[string]string)
	for k, v := range after {
		if before[k] == v {
			continue
		}
		if opt, ok := d.info.Option(k); ok && opt.RequiresReload {
			reload = true
			continue
		}
		live[k] = v
	}
	if len(live) == 0 {
		return reload
	}

	err := d.backend.ApplyOptions(live)
	switch {
	case errors.Is(err, emucore.ErrRequiresReload):
		return true
	case err != nil:
		d.logger.Printf("Failed to apply %s options: %v", d.info.Name, err)
	}
	d.engine.SetSourceRate(d.backend.AudioSampleRate())
	return reload
}

// ReplaceBackend builds a new backend instance with the options in effect
// and swaps it in at the next tick boundary. The running state is carried
// over when the new instance accepts it. If construction fails the old
// backend keeps running and the error is returned.
func (d *Driver) ReplaceBackend() error {
	return d.do(d.replaceBackend)
}

func (d *Driver) replaceBackend() error {
	opts := d.cfg.BackendOptions(d.info.Name, d.info.DefaultOptions())
	next, err := d.factory.Create(d.media, opts)
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", d.info.Name, err)
	}

	carried, err := d.states.Capture()
	if err != nil {
		d.logger.Printf("State not carried over: %v", err)
		carried = nil
	}
	if d.saver != nil {
		d.flushSRAM()
	}
	d.backend.Close()

	d.setBackend(next)
	d.states.Attach(next, d.info, d.media.ID)
	d.rewindHold = 0
	if d.saver != nil {
		if err := d.states.LoadSRAM(d.saver); err != nil {
			d.logger.Printf("SRAM load failed: %v", err)
		}
	}
	if carried != nil {
		if err := d.states.Restore(carried); err != nil {
			if errors.Is(err, emucore.ErrFatal) {
				return err
			}
			d.logger.Printf("State not carried over: %v", err)
		}
	}

	d.engine.SetSourceRate(next.AudioSampleRate())
	d.pendingReplace = false
	d.afterRestore()
	d.notify("Backend reloaded")
	return nil
}
