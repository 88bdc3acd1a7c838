//go:build !headless

package frontend

import (
	"github.com/hajimehoshi/ebiten/v2"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/input"
)

// keyCodes maps binding key names to ebiten keys.
var keyCodes = map[string]ebiten.Key{
	"A": ebiten.KeyA, "B": ebiten.KeyB, "C": ebiten.KeyC, "D": ebiten.KeyD,
	"E": ebiten.KeyE, "F": ebiten.KeyF, "G": ebiten.KeyG, "H": ebiten.KeyH,
	"I": ebiten.KeyI, "J": ebiten.KeyJ, "K": ebiten.KeyK, "L": ebiten.KeyL,
	"M": ebiten.KeyM, "N": ebiten.KeyN, "O": ebiten.KeyO, "P": ebiten.KeyP,
	"Q": ebiten.KeyQ, "R": ebiten.KeyR, "S": ebiten.KeyS, "T": ebiten.KeyT,
	"U": ebiten.KeyU, "V": ebiten.KeyV, "W": ebiten.KeyW, "X": ebiten.KeyX,
	"Y": ebiten.KeyY, "Z": ebiten.KeyZ,
	"0": ebiten.Key0, "1": ebiten.Key1, "2": ebiten.Key2, "3": ebiten.Key3,
	"4": ebiten.Key4, "5": ebiten.Key5, "6": ebiten.Key6, "7": ebiten.Key7,
	"8": ebiten.Key8, "9": ebiten.Key9,
	"Enter":       ebiten.KeyEnter,
	"Backspace":   ebiten.KeyBackspace,
	"Space":       ebiten.KeySpace,
	"Semicolon":   ebiten.KeySemicolon,
	"Comma":       ebiten.KeyComma,
	"Period":      ebiten.KeyPeriod,
	"Slash":       ebiten.KeySlash,
	"Tab":         ebiten.KeyTab,
	"Escape":      ebiten.KeyEscape,
	"Shift":       ebiten.KeyShift,
	"Control":     ebiten.KeyControl,
	"Alt":         ebiten.KeyAlt,
	"Meta":        ebiten.KeyMeta,
	"GraveAccent": ebiten.KeyGraveAccent,
	"ArrowUp":     ebiten.KeyArrowUp,
	"ArrowDown":   ebiten.KeyArrowDown,
	"ArrowLeft":   ebiten.KeyArrowLeft,
	"ArrowRight":  ebiten.KeyArrowRight,
	"[":           ebiten.KeyLeftBracket,
	"]":           ebiten.KeyRightBracket,
	"-":           ebiten.KeyMinus,
	"=":           ebiten.KeyEqual,
	"'":           ebiten.KeyApostrophe,
	"F1":          ebiten.KeyF1,
	"F2":          ebiten.KeyF2,
	"F3":          ebiten.KeyF3,
	"F4":          ebiten.KeyF4,
	"F5":          ebiten.KeyF5,
	"F6":          ebiten.KeyF6,
	"F7":          ebiten.KeyF7,
	"F8":          ebiten.KeyF8,
	"F9":          ebiten.KeyF9,
	"F10":         ebiten.KeyF10,
	"F11":         ebiten.KeyF11,
	"F12":         ebiten.KeyF12,
}

// padCodes maps binding pad button names to the standard gamepad layout.
var padCodes = map[string]ebiten.StandardGamepadButton{
	"A":         ebiten.StandardGamepadButtonRightBottom,
	"B":         ebiten.StandardGamepadButtonRightRight,
	"X":         ebiten.StandardGamepadButtonRightLeft,
	"Y":         ebiten.StandardGamepadButtonRightTop,
	"L1":        ebiten.StandardGamepadButtonFrontTopLeft,
	"R1":        ebiten.StandardGamepadButtonFrontTopRight,
	"L2":        ebiten.StandardGamepadButtonFrontBottomLeft,
	"R2":        ebiten.StandardGamepadButtonFrontBottomRight,
	"Start":     ebiten.StandardGamepadButtonCenterRight,
	"Select":    ebiten.StandardGamepadButtonCenterLeft,
	"DpadUp":    ebiten.StandardGamepadButtonLeftTop,
	"DpadDown":  ebiten.StandardGamepadButtonLeftBottom,
	"DpadLeft":  ebiten.StandardGamepadButtonLeftLeft,
	"DpadRight": ebiten.StandardGamepadButtonLeftRight,
	"L3":        ebiten.StandardGamepadButtonLeftStick,
	"R3":        ebiten.StandardGamepadButtonRightStick,
}

// stickDeadzone is the left stick deflection that counts as a d-pad press.
const stickDeadzone = 0.5

// pollPressed returns every bound-able input held this frame. The first
// MaxPlayers standard-layout gamepads become pad0, pad1 and so on; the
// left stick doubles as the d-pad.
func pollPressed(dst map[input.PhysicalInput]bool, ids []ebiten.GamepadID) map[input.PhysicalInput]bool {
	clear(dst)
	for name, k := range keyCodes {
		if ebiten.IsKeyPressed(k) {
			dst[input.Key(name)] = true
		}
	}

	n := 0
	for _, id := range ids {
		if n >= emucore.MaxPlayers {
			break
		}
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		for name, b := range padCodes {
			if ebiten.IsStandardGamepadButtonPressed(id, b) {
				dst[input.PadButton(n, name)] = true
			}
		}
		x := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		y := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if y < -stickDeadzone {
			dst[input.PadButton(n, "DpadUp")] = true
		}
		if y > stickDeadzone {
			dst[input.PadButton(n, "DpadDown")] = true
		}
		if x < -stickDeadzone {
			dst[input.PadButton(n, "DpadLeft")] = true
		}
		if x > stickDeadzone {
			dst[input.PadButton(n, "DpadRight")] = true
		}
		n++
	}
	return dst
}
