package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSlotNotFound is returned when a named slot does not exist.
var ErrSlotNotFound = errors.New("save slot not found")

// Reserved slot names.
const (
	SlotResume = "resume"
	SlotSRAM   = "sram"
)

// maxSlotName bounds slot and game identifiers.
const maxSlotName = 64

// SlotName returns the name of numbered slot n.
func SlotName(n int) string {
	return fmt.Sprintf("slot-%d", n)
}

// ValidateName checks that a slot or game identifier is safe to use as a
// file name or database key.
func ValidateName(name string) error {
	if name == "" || len(name) > maxSlotName {
		return fmt.Errorf("invalid name %q: must be 1-%d characters", name, maxSlotName)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	}) >= 0 {
		return fmt.Errorf("invalid name %q: only letters, digits, '-' and '_' allowed", name)
	}
	return nil
}

// SlotInfo describes a stored slot.
type SlotInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Store persists named slots per game. Implementations must make Put
// atomic: a reader sees either the old or the new content, never a mix.
type Store interface {
	Put(gameID, name string, data []byte) error
	// Get returns ErrSlotNotFound for a missing slot.
	Get(gameID, name string) ([]byte, error)
	// List returns the slots of a game sorted by name.
	List(gameID string) ([]SlotInfo, error)
	// Delete returns ErrSlotNotFound for a missing slot.
	Delete(gameID, name string) error
	Close() error
}

func checkKey(gameID, name string) error {
	if err := ValidateName(gameID); err != nil {
		return fmt.Errorf("game id: %w", err)
	}
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	return nil
}
