package frontend

import (
	"sort"

	"github.com/user-none/emudriver/input"
)

// tracker turns polled input state into press and release edges.
type tracker struct {
	held map[input.PhysicalInput]bool
}

func newTracker() *tracker {
	return &tracker{held: make(map[input.PhysicalInput]bool)}
}

// Diff compares the inputs pressed this frame with the previous frame and
// returns the edges. Inputs missing from pressed are released, which
// covers disconnected gamepads. Releases come before presses and each
// group is ordered by name.
func (t *tracker) Diff(pressed map[input.PhysicalInput]bool) []input.Event {
	var released, down []input.PhysicalInput
	for in := range t.held {
		if !pressed[in] {
			released = append(released, in)
		}
	}
	for in, p := range pressed {
		if p && !t.held[in] {
			down = append(down, in)
		}
	}
	sortInputs(released)
	sortInputs(down)

	events := make([]input.Event, 0, len(released)+len(down))
	for _, in := range released {
		delete(t.held, in)
		events = append(events, input.Event{Input: in})
	}
	for _, in := range down {
		t.held[in] = true
		events = append(events, input.Event{Input: in, Pressed: true})
	}
	return events
}

// ReleaseAll returns release events for everything held.
func (t *tracker) ReleaseAll() []input.Event {
	return t.Diff(nil)
}

func sortInputs(s []input.PhysicalInput) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Device != s[j].Device {
			return s[i].Device < s[j].Device
		}
		return s[i].Code < s[j].Code
	})
}
