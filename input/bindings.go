package input

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	emucore "github.com/user-none/emudriver/api"
)

// ErrConflict is returned when a button binding would shadow a hotkey.
var ErrConflict = errors.New("input is bound to a hotkey")

// ButtonBinding is the controller button a physical input drives.
type ButtonBinding struct {
	Player int
	Button int // logical button (emucore.Button*)
}

// Bindings maps physical inputs to controller buttons and chords to
// driver commands. A chord maps to exactly one command.
type Bindings struct {
	buttons map[PhysicalInput]ButtonBinding
	hotkeys map[Chord]Command
}

// NewBindings returns an empty binding set.
func NewBindings() *Bindings {
	return &Bindings{
		buttons: make(map[PhysicalInput]ButtonBinding),
		hotkeys: make(map[Chord]Command),
	}
}

// Clone returns a deep copy.
func (b *Bindings) Clone() *Bindings {
	c := NewBindings()
	for k, v := range b.buttons {
		c.buttons[k] = v
	}
	for k, v := range b.hotkeys {
		c.hotkeys[k] = v
	}
	return c
}

// BindButton maps a physical input to a player's logical button, replacing
// any previous mapping of that input. Inputs that are single-input hotkeys
// cannot be bound.
func (b *Bindings) BindButton(in PhysicalInput, player, button int) error {
	if player < 0 || player >= emucore.MaxPlayers {
		return fmt.Errorf("%w: player %d", ErrInvalidInput, player+1)
	}
	if emucore.ButtonName(button) == "" {
		return fmt.Errorf("%w: button %d", ErrInvalidInput, button)
	}
	if cmd, ok := b.hotkeys[MustChord(in)]; ok {
		return fmt.Errorf("%w: %s is %s", ErrConflict, in, cmd)
	}
	b.buttons[in] = ButtonBinding{Player: player, Button: button}
	return nil
}

// UnbindButton removes the button mapping of an input.
func (b *Bindings) UnbindButton(in PhysicalInput) {
	delete(b.buttons, in)
}

// Button returns the button mapping of an input.
func (b *Bindings) Button(in PhysicalInput) (ButtonBinding, bool) {
	bb, ok := b.buttons[in]
	return bb, ok
}

// BindHotkey maps a chord to a command, replacing whatever the chord was
// bound to before. A single-input chord also takes the input away from
// any button it drove.
func (b *Bindings) BindHotkey(ch Chord, cmd Command) error {
	if ch.Len() == 0 {
		return fmt.Errorf("%w: empty chord", ErrInvalidInput)
	}
	if cmd.Action <= ActionNone || cmd.Action >= numActions {
		return fmt.Errorf("%w: command %s", ErrInvalidInput, cmd)
	}
	if in, ok := ch.Single(); ok {
		delete(b.buttons, in)
	}
	b.hotkeys[ch] = cmd
	return nil
}

// UnbindHotkey removes a chord.
func (b *Bindings) UnbindHotkey(ch Chord) {
	delete(b.hotkeys, ch)
}

// Hotkey returns the command bound to a chord.
func (b *Bindings) Hotkey(ch Chord) (Command, bool) {
	cmd, ok := b.hotkeys[ch]
	return cmd, ok
}

// ChordsFor returns every chord bound to cmd, sorted.
func (b *Bindings) ChordsFor(cmd Command) []Chord {
	var out []Chord
	for ch, c := range b.hotkeys {
		if c == cmd {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// chordsWith returns the bound chords containing in.
func (b *Bindings) chordsWith(in PhysicalInput) []Chord {
	var out []Chord
	for ch := range b.hotkeys {
		if ch.Contains(in) {
			out = append(out, ch)
		}
	}
	return out
}

// String renders the bindings as a stable two-section table.
func (b *Bindings) String() string {
	var sb strings.Builder

	type row struct{ left, right string }
	var buttons []row
	for in, bb := range b.buttons {
		buttons = append(buttons, row{
			left:  fmt.Sprintf("P%d %s", bb.Player+1, emucore.ButtonName(bb.Button)),
			right: in.String(),
		})
	}
	sort.Slice(buttons, func(i, j int) bool {
		if buttons[i].left != buttons[j].left {
			return buttons[i].left < buttons[j].left
		}
		return buttons[i].right < buttons[j].right
	})

	var hotkeys []row
	for ch, cmd := range b.hotkeys {
		hotkeys = append(hotkeys, row{left: cmd.String(), right: ch.String()})
	}
	sort.Slice(hotkeys, func(i, j int) bool {
		if hotkeys[i].left != hotkeys[j].left {
			return hotkeys[i].left < hotkeys[j].left
		}
		return hotkeys[i].right < hotkeys[j].right
	})

	sb.WriteString("[buttons]\n")
	for _, r := range buttons {
		fmt.Fprintf(&sb, "%-12s %s\n", r.left, r.right)
	}
	sb.WriteString("[hotkeys]\n")
	for _, r := range hotkeys {
		fmt.Fprintf(&sb, "%-12s %s\n", r.left, r.right)
	}
	return sb.String()
}
