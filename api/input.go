package emucore

// MaxPlayers is the number of controller ports an InputFrame carries.
const MaxPlayers = 4

// Logical button bit positions. Backends map these onto their own
// controller layout; the d-pad is always bits 0-3.
const (
	ButtonUp = iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonA
	ButtonB
	ButtonC
	ButtonX
	ButtonY
	ButtonZ
	ButtonL
	ButtonR
	ButtonStart
	ButtonSelect
	ButtonMode
	numButtons
)

var buttonNames = [numButtons]string{
	"Up", "Down", "Left", "Right",
	"A", "B", "C", "X", "Y", "Z",
	"L", "R", "Start", "Select", "Mode",
}

// ButtonName returns the name of a logical button, or "" if out of range.
func ButtonName(id int) string {
	if id < 0 || id >= numButtons {
		return ""
	}
	return buttonNames[id]
}

// ParseButton returns the logical button with the given name.
func ParseButton(name string) (int, bool) {
	for i, n := range buttonNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Button describes a backend button with its display name and the
// logical button it is driven by.
type Button struct {
	Name       string
	ID         int    // logical button bit (Button*)
	DefaultKey string // default keyboard key name (e.g. "J", "Enter")
	DefaultPad string // default gamepad button name (e.g. "A", "Start")
}

// InputFrame is a normalized snapshot of all controller inputs for one
// tick. Each player is a bitmask of logical buttons.
type InputFrame struct {
	Players [MaxPlayers]uint32
}

// Pressed reports whether a logical button is held for a player.
func (f InputFrame) Pressed(player, button int) bool {
	if player < 0 || player >= MaxPlayers {
		return false
	}
	return f.Players[player]&(1<<uint(button)) != 0
}
