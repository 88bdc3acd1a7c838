package input

// keyNames are the keyboard key names understood in bindings. A frontend
// maps each of them to its window system's key codes.
var keyNames = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"Enter", "Backspace", "Space", "Semicolon", "Comma", "Period", "Slash",
	"Tab", "Escape", "Shift", "Control", "Alt", "Meta", "GraveAccent",
	"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight",
	"[", "]", "-", "=", "'",
	"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12",
}

// padNames are the standard gamepad button names understood in bindings.
var padNames = []string{
	"A", "B", "X", "Y",
	"L1", "R1", "L2", "R2",
	"Start", "Select",
	"DpadUp", "DpadDown", "DpadLeft", "DpadRight",
	"L3", "R3",
}

var (
	keySet = toSet(keyNames)
	padSet = toSet(padNames)
)

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// KeyNames returns the known keyboard key names.
func KeyNames() []string {
	return append([]string(nil), keyNames...)
}

// PadNames returns the known gamepad button names.
func PadNames() []string {
	return append([]string(nil), padNames...)
}

// Known reports whether an input names a key or pad button that exists.
func Known(in PhysicalInput) bool {
	if in.Device == Keyboard {
		return keySet[in.Code]
	}
	if _, ok := PadIndex(in.Device); ok {
		return padSet[in.Code]
	}
	return false
}

// reservedKeys are keyboard keys used for driver functions. They are
// never assigned as default button bindings.
var reservedKeys = map[string]bool{
	"Escape":      true, // pause
	"Tab":         true, // fast-forward
	"R":           true, // rewind
	"F1":          true, // save state
	"F2":          true, // cycle slot
	"F3":          true, // load state
	"F4":          true, // speed cycle
	"F5":          true, // reset
	"F6":          true,
	"F7":          true,
	"F8":          true,
	"F9":          true,
	"F10":         true,
	"F11":         true,
	"F12":         true,
	"Shift":       true, // modifier
	"Control":     true,
	"Alt":         true,
	"Meta":        true,
	"GraveAccent": true,
}

// IsReservedKey reports whether a key is reserved for driver functions.
func IsReservedKey(name string) bool {
	return reservedKeys[name]
}
