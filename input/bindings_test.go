package input

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/emudriver/api"
)

var testButtons = []emucore.Button{
	{Name: "A", ID: emucore.ButtonA, DefaultKey: "J", DefaultPad: "A"},
	{Name: "Start", ID: emucore.ButtonStart, DefaultKey: "Enter", DefaultPad: "Start"},
}

func TestDefaultBindingsGolden(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "default_bindings", []byte(DefaultBindings(testButtons).String()))
}

func TestRebindHotkeyKeepsLast(t *testing.T) {
	b := NewBindings()
	ch := MustChordString("F6")
	require.NoError(t, b.BindHotkey(ch, SaveSlotCmd(1)))
	require.NoError(t, b.BindHotkey(ch, LoadSlotCmd(1)))

	cmd, ok := b.Hotkey(ch)
	require.True(t, ok)
	assert.Equal(t, LoadSlotCmd(1), cmd)
	assert.Empty(t, b.ChordsFor(SaveSlotCmd(1)))
	assert.Equal(t, []Chord{ch}, b.ChordsFor(LoadSlotCmd(1)))
}

func TestHotkeyStealsButton(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BindButton(Key("J"), 0, emucore.ButtonA))
	require.NoError(t, b.BindHotkey(MustChordString("J"), Cmd(ActionPause)))

	_, ok := b.Button(Key("J"))
	assert.False(t, ok)

	err := b.BindButton(Key("J"), 0, emucore.ButtonA)
	assert.ErrorIs(t, err, ErrConflict)

	// A chord containing the key does not block it.
	require.NoError(t, b.BindButton(Key("K"), 0, emucore.ButtonB))
	require.NoError(t, b.BindHotkey(MustChordString("Shift+K"), Cmd(ActionQuit)))
	bb, ok := b.Button(Key("K"))
	require.True(t, ok)
	assert.Equal(t, ButtonBinding{Player: 0, Button: emucore.ButtonB}, bb)
}

func TestBindRejectsInvalid(t *testing.T) {
	b := NewBindings()
	assert.ErrorIs(t, b.BindButton(Key("J"), emucore.MaxPlayers, emucore.ButtonA), ErrInvalidInput)
	assert.ErrorIs(t, b.BindButton(Key("J"), 0, 99), ErrInvalidInput)
	assert.ErrorIs(t, b.BindHotkey(Chord{}, Cmd(ActionPause)), ErrInvalidInput)
	assert.ErrorIs(t, b.BindHotkey(MustChordString("J"), Cmd(ActionNone)), ErrInvalidInput)
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BindButton(Key("J"), 0, emucore.ButtonA))
	c := b.Clone()
	c.UnbindButton(Key("J"))

	_, ok := b.Button(Key("J"))
	assert.True(t, ok)
	_, ok = c.Button(Key("J"))
	assert.False(t, ok)
}

func TestBuildBindingsOverrides(t *testing.T) {
	b, err := BuildBindings(testButtons, Overrides{
		Keyboard: map[string]string{"A": "K"},
		Gamepad:  map[string]string{"A": "B"},
		Hotkeys: map[string]string{
			"F6":       "save-slot:1",
			"F1":       "none",
			"Shift+F6": "load-slot:1",
		},
	})
	require.NoError(t, err)

	bb, ok := b.Button(Key("K"))
	require.True(t, ok)
	assert.Equal(t, ButtonBinding{Player: 0, Button: emucore.ButtonA}, bb)
	_, ok = b.Button(Key("J"))
	assert.False(t, ok)

	bb, ok = b.Button(PadButton(2, "B"))
	require.True(t, ok)
	assert.Equal(t, ButtonBinding{Player: 2, Button: emucore.ButtonA}, bb)

	_, ok = b.Hotkey(MustChordString("F1"))
	assert.False(t, ok)
	cmd, ok := b.Hotkey(MustChordString("F6"))
	require.True(t, ok)
	assert.Equal(t, SaveSlotCmd(1), cmd)
	cmd, ok = b.Hotkey(MustChordString("Shift+F6"))
	require.True(t, ok)
	assert.Equal(t, LoadSlotCmd(1), cmd)
}

func TestBuildBindingsReportsBadOverrides(t *testing.T) {
	b, err := BuildBindings(testButtons, Overrides{
		Keyboard: map[string]string{"A": "F1", "Start": "Hyper"},
		Gamepad:  map[string]string{"A": "Trigger"},
		Hotkeys:  map[string]string{"F7": "jump", "pad9/A": "pause"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Defaults survive invalid overrides.
	bb, ok := b.Button(Key("J"))
	require.True(t, ok)
	assert.Equal(t, emucore.ButtonA, bb.Button)
	_, ok = b.Button(Key("Enter"))
	assert.True(t, ok)
	_, ok = b.Button(PadButton(0, "A"))
	assert.True(t, ok)
	_, ok = b.Hotkey(MustChordString("F7"))
	assert.False(t, ok)
}

func TestDefaultHotkeyWinsOverDefaultButton(t *testing.T) {
	b, err := BuildBindings(testButtons, Overrides{
		Hotkeys: map[string]string{"J": "pause"},
	})
	require.NoError(t, err)
	_, ok := b.Button(Key("J"))
	assert.False(t, ok)
	cmd, ok := b.Hotkey(MustChordString("J"))
	require.True(t, ok)
	assert.Equal(t, Cmd(ActionPause), cmd)
}

func TestValidateOverrides(t *testing.T) {
	problems := ValidateOverrides(Overrides{
		Keyboard: map[string]string{"A": "Tab", "B": "Hyper", "C": "K"},
		Gamepad:  map[string]string{"A": "Trigger", "B": "R1"},
		Hotkeys:  map[string]string{"F6": "pause", "F7": "jump", "Hyper": "quit", "F8": "none"},
	})
	assert.Equal(t, []string{
		`input.hotkeys: "F7": invalid input: unknown command "jump"`,
		`input.hotkeys: "Hyper": unknown key or button`,
		`input.keyboard.A: "Tab" (reserved key)`,
		`input.keyboard.B: "Hyper" (unknown key)`,
		`input.gamepad.A: "Trigger" (unknown button)`,
	}, problems)

	assert.Empty(t, ValidateOverrides(Overrides{}))
}
