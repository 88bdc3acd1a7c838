package input

import (
	"errors"
	"fmt"
	"sort"

	emucore "github.com/user-none/emudriver/api"
)

// D-pad button names used in overrides and display.
var dpadButtons = []struct {
	Name       string
	ID         int
	DefaultKey string
	DefaultPad string
}{
	{"Up", emucore.ButtonUp, "W", "DpadUp"},
	{"Down", emucore.ButtonDown, "S", "DpadDown"},
	{"Left", emucore.ButtonLeft, "A", "DpadLeft"},
	{"Right", emucore.ButtonRight, "D", "DpadRight"},
}

// defaultHotkeys are bound before any override.
var defaultHotkeys = []struct {
	chord string
	cmd   Command
}{
	{"F1", Cmd(ActionSaveState)},
	{"F2", Cmd(ActionNextSlot)},
	{"Shift+F2", Cmd(ActionPrevSlot)},
	{"F3", Cmd(ActionLoadState)},
	{"F4", Cmd(ActionSpeedCycle)},
	{"F5", Cmd(ActionSoftReset)},
	{"Shift+F5", Cmd(ActionHardReset)},
	{"R", Cmd(ActionRewind)},
	{"Tab", Cmd(ActionFastForward)},
	{"Escape", Cmd(ActionPause)},
	{"pad0/L2", Cmd(ActionRewind)},
	{"pad0/R2", Cmd(ActionFastForward)},
}

// Overrides are user binding changes layered over the defaults.
type Overrides struct {
	Keyboard map[string]string // button name -> key name (player 1)
	Gamepad  map[string]string // button name -> pad button name (all pads)
	Hotkeys  map[string]string // chord -> command, "none" unbinds
}

// DefaultBindings binds the d-pad to WASD and the gamepad d-pad, the
// system's buttons to their default keys (player 1) and pad buttons (each
// pad drives its own player), plus the default hotkeys. Keys reserved for
// driver functions are skipped.
func DefaultBindings(buttons []emucore.Button) *Bindings {
	b, _ := BuildBindings(buttons, Overrides{})
	return b
}

// BuildBindings creates bindings from overrides with defaults as fallback.
// For each button the override is checked first; if absent the default is
// used. Invalid overrides are skipped and reported in the returned error.
func BuildBindings(buttons []emucore.Button, ov Overrides) (*Bindings, error) {
	b := NewBindings()
	var errs []error

	for _, hk := range defaultHotkeys {
		b.BindHotkey(MustChordString(hk.chord), hk.cmd)
	}
	for _, chord := range sortedKeys(ov.Hotkeys) {
		ch, err := ParseChord(chord)
		if err != nil {
			errs = append(errs, fmt.Errorf("hotkey %q: %w", chord, err))
			continue
		}
		if ov.Hotkeys[chord] == "none" {
			b.UnbindHotkey(ch)
			continue
		}
		cmd, err := ParseCommand(ov.Hotkeys[chord])
		if err != nil {
			errs = append(errs, fmt.Errorf("hotkey %q: %w", chord, err))
			continue
		}
		b.BindHotkey(ch, cmd)
	}

	type def struct {
		name string
		id   int
		key  string
		pad  string
	}
	defs := make([]def, 0, len(dpadButtons)+len(buttons))
	for _, dp := range dpadButtons {
		defs = append(defs, def{dp.Name, dp.ID, dp.DefaultKey, dp.DefaultPad})
	}
	for _, btn := range buttons {
		defs = append(defs, def{btn.Name, btn.ID, btn.DefaultKey, btn.DefaultPad})
	}

	for _, d := range defs {
		// Keyboard
		key := d.key
		if override, ok := ov.Keyboard[d.name]; ok {
			if !keySet[override] || IsReservedKey(override) {
				errs = append(errs, fmt.Errorf("keyboard %s: %w: key %q", d.name, ErrInvalidInput, override))
			} else {
				key = override
			}
		} else if IsReservedKey(key) {
			key = ""
		}
		if key != "" {
			if err := b.BindButton(Key(key), 0, d.id); err != nil && ov.Keyboard[d.name] != "" {
				errs = append(errs, fmt.Errorf("keyboard %s: %w", d.name, err))
			}
		}

		// Controller
		pad := d.pad
		if override, ok := ov.Gamepad[d.name]; ok {
			if !padSet[override] {
				errs = append(errs, fmt.Errorf("gamepad %s: %w: button %q", d.name, ErrInvalidInput, override))
			} else {
				pad = override
			}
		}
		if pad != "" {
			for p := 0; p < emucore.MaxPlayers; p++ {
				// A pad button taken by a hotkey stays a hotkey.
				if err := b.BindButton(PadButton(p, pad), p, d.id); err != nil && !errors.Is(err, ErrConflict) {
					errs = append(errs, fmt.Errorf("gamepad %s: %w", d.name, err))
				}
			}
		}
	}

	return b, errors.Join(errs...)
}

// ValidateOverrides returns one description per invalid override.
func ValidateOverrides(ov Overrides) []string {
	var problems []string
	for _, chord := range sortedKeys(ov.Hotkeys) {
		ch, err := ParseChord(chord)
		if err != nil {
			problems = append(problems, fmt.Sprintf("input.hotkeys: %q: %v", chord, err))
			continue
		}
		if !chordKnown(ch) {
			problems = append(problems, fmt.Sprintf("input.hotkeys: %q: unknown key or button", chord))
		}
		if v := ov.Hotkeys[chord]; v != "none" {
			if _, err := ParseCommand(v); err != nil {
				problems = append(problems, fmt.Sprintf("input.hotkeys: %q: %v", chord, err))
			}
		}
	}
	for _, name := range sortedKeys(ov.Keyboard) {
		key := ov.Keyboard[name]
		if !keySet[key] {
			problems = append(problems, fmt.Sprintf("input.keyboard.%s: %q (unknown key)", name, key))
		} else if IsReservedKey(key) {
			problems = append(problems, fmt.Sprintf("input.keyboard.%s: %q (reserved key)", name, key))
		}
	}
	for _, name := range sortedKeys(ov.Gamepad) {
		if pad := ov.Gamepad[name]; !padSet[pad] {
			problems = append(problems, fmt.Sprintf("input.gamepad.%s: %q (unknown button)", name, pad))
		}
	}
	return problems
}

func chordKnown(ch Chord) bool {
	for _, in := range ch.Inputs() {
		if !Known(in) {
			return false
		}
	}
	return true
}

// MustChordString parses a chord from a static table; it panics on error.
func MustChordString(s string) Chord {
	ch, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return ch
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
