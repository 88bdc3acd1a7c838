// Package input turns raw device events into per-tick controller state and
// edge-triggered driver commands.
package input

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	emucore "github.com/user-none/emudriver/api"
)

// Keyboard is the device name of the keyboard.
const Keyboard = "keyboard"

// maxChord is the largest number of inputs in one chord.
const maxChord = 3

// ErrInvalidInput is returned for unparseable input or chord names.
var ErrInvalidInput = errors.New("invalid input")

// PadDevice returns the device name of gamepad n (0-based).
func PadDevice(n int) string {
	return "pad" + strconv.Itoa(n)
}

// PadIndex returns the gamepad number of a pad device name.
func PadIndex(device string) (int, bool) {
	s, ok := strings.CutPrefix(device, "pad")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= emucore.MaxPlayers {
		return 0, false
	}
	return n, true
}

// PhysicalInput identifies one key or button on one device.
type PhysicalInput struct {
	Device string
	Code   string
}

// Key returns the keyboard input with the given key name.
func Key(code string) PhysicalInput {
	return PhysicalInput{Device: Keyboard, Code: code}
}

// PadButton returns a button on gamepad n.
func PadButton(n int, code string) PhysicalInput {
	return PhysicalInput{Device: PadDevice(n), Code: code}
}

// String renders keyboard inputs as the bare key name and other devices as
// device/code.
func (p PhysicalInput) String() string {
	if p.Device == Keyboard {
		return p.Code
	}
	return p.Device + "/" + p.Code
}

// ParsePhysical parses the String form of an input.
func ParsePhysical(s string) (PhysicalInput, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PhysicalInput{}, fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	dev, code, ok := strings.Cut(s, "/")
	if !ok {
		return Key(s), nil
	}
	if code == "" {
		return PhysicalInput{}, fmt.Errorf("%w: %q has no code", ErrInvalidInput, s)
	}
	if dev != Keyboard {
		if _, ok := PadIndex(dev); !ok {
			return PhysicalInput{}, fmt.Errorf("%w: unknown device %q", ErrInvalidInput, dev)
		}
	}
	return PhysicalInput{Device: dev, Code: code}, nil
}

var modifiers = map[string]int{"Control": 0, "Alt": 1, "Shift": 2, "Meta": 3}

func isModifier(p PhysicalInput) bool {
	_, ok := modifiers[p.Code]
	return ok && p.Device == Keyboard
}

// Chord is a set of one to three inputs held together. Chords are
// comparable and canonically ordered: modifiers first, then by name.
type Chord struct {
	inputs [maxChord]PhysicalInput
	n      int
}

// NewChord builds a chord from its inputs. Duplicates are collapsed.
func NewChord(inputs ...PhysicalInput) (Chord, error) {
	var list []PhysicalInput
	seen := make(map[PhysicalInput]bool, len(inputs))
	for _, in := range inputs {
		if in.Code == "" || in.Device == "" {
			return Chord{}, fmt.Errorf("%w: empty input in chord", ErrInvalidInput)
		}
		if !seen[in] {
			seen[in] = true
			list = append(list, in)
		}
	}
	if len(list) == 0 || len(list) > maxChord {
		return Chord{}, fmt.Errorf("%w: chord needs 1-%d inputs, got %d", ErrInvalidInput, maxChord, len(list))
	}

	sort.Slice(list, func(i, j int) bool {
		mi, mj := isModifier(list[i]), isModifier(list[j])
		if mi != mj {
			return mi
		}
		if mi {
			return modifiers[list[i].Code] < modifiers[list[j].Code]
		}
		return list[i].String() < list[j].String()
	})

	var c Chord
	c.n = copy(c.inputs[:], list)
	return c, nil
}

// MustChord is NewChord for static tables; it panics on error.
func MustChord(inputs ...PhysicalInput) Chord {
	c, err := NewChord(inputs...)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseChord parses "Shift+F2" or "pad0/L3+pad0/R3".
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(s, "+")
	inputs := make([]PhysicalInput, 0, len(parts))
	for _, p := range parts {
		in, err := ParsePhysical(p)
		if err != nil {
			return Chord{}, err
		}
		inputs = append(inputs, in)
	}
	return NewChord(inputs...)
}

// Inputs returns the chord's inputs in canonical order.
func (c Chord) Inputs() []PhysicalInput {
	return append([]PhysicalInput(nil), c.inputs[:c.n]...)
}

// Len returns the number of inputs.
func (c Chord) Len() int {
	return c.n
}

// Contains reports whether in is part of the chord.
func (c Chord) Contains(in PhysicalInput) bool {
	for _, x := range c.inputs[:c.n] {
		if x == in {
			return true
		}
	}
	return false
}

// Single returns the input of a one-input chord.
func (c Chord) Single() (PhysicalInput, bool) {
	if c.n != 1 {
		return PhysicalInput{}, false
	}
	return c.inputs[0], true
}

func (c Chord) String() string {
	names := make([]string, c.n)
	for i, in := range c.inputs[:c.n] {
		names[i] = in.String()
	}
	return strings.Join(names, "+")
}
