package input

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a driver-level operation a hotkey can trigger.
type Action int

const (
	ActionNone Action = iota
	ActionSaveState
	ActionLoadState
	ActionSaveSlot // numbered slot in Command.Slot
	ActionLoadSlot // numbered slot in Command.Slot
	ActionNextSlot
	ActionPrevSlot
	ActionRewind // held
	ActionPause
	ActionSoftReset
	ActionHardReset
	ActionSpeedCycle
	ActionFastForward // held
	ActionQuit
	numActions
)

var actionNames = [numActions]string{
	ActionNone:        "none",
	ActionSaveState:   "save-state",
	ActionLoadState:   "load-state",
	ActionSaveSlot:    "save-slot",
	ActionLoadSlot:    "load-slot",
	ActionNextSlot:    "next-slot",
	ActionPrevSlot:    "prev-slot",
	ActionRewind:      "rewind",
	ActionPause:       "pause",
	ActionSoftReset:   "soft-reset",
	ActionHardReset:   "hard-reset",
	ActionSpeedCycle:  "speed-cycle",
	ActionFastForward: "fast-forward",
	ActionQuit:        "quit",
}

func (a Action) String() string {
	if a < 0 || a >= numActions {
		return "action(" + strconv.Itoa(int(a)) + ")"
	}
	return actionNames[a]
}

// Held reports whether the action lasts while its hotkey is held rather
// than firing once on press.
func (a Action) Held() bool {
	return a == ActionRewind || a == ActionFastForward
}

// Command is an action plus its argument.
type Command struct {
	Action Action
	Slot   int
}

// Cmd returns a command without argument.
func Cmd(a Action) Command {
	return Command{Action: a}
}

// SaveSlotCmd returns the command saving numbered slot n.
func SaveSlotCmd(n int) Command {
	return Command{Action: ActionSaveSlot, Slot: n}
}

// LoadSlotCmd returns the command loading numbered slot n.
func LoadSlotCmd(n int) Command {
	return Command{Action: ActionLoadSlot, Slot: n}
}

func (c Command) String() string {
	if c.Action == ActionSaveSlot || c.Action == ActionLoadSlot {
		return c.Action.String() + ":" + strconv.Itoa(c.Slot)
	}
	return c.Action.String()
}

// ParseCommand parses the String form of a command, e.g. "pause" or
// "save-slot:1".
func ParseCommand(s string) (Command, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	for a := ActionSaveState; a < numActions; a++ {
		if actionNames[a] != name {
			continue
		}
		takesSlot := a == ActionSaveSlot || a == ActionLoadSlot
		if takesSlot != hasArg {
			return Command{}, fmt.Errorf("%w: command %q", ErrInvalidInput, s)
		}
		if !takesSlot {
			return Cmd(a), nil
		}
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("%w: slot in %q", ErrInvalidInput, s)
		}
		return Command{Action: a, Slot: n}, nil
	}
	return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidInput, s)
}

// CommandEvent is an edge of a hotkey: Pressed on activation, !Pressed on
// release.
type CommandEvent struct {
	Command Command
	Pressed bool
}
