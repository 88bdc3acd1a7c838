package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user-none/emudriver/storage"
)

// FileStore keeps slots as files under <dir>/<gameID>/.
// Numbered slots use state-N.state, the resume slot resume.state and
// battery RAM cart.srm; any other name is stored as <name>.state.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. An empty dir selects the
// default saves directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := storage.GetSavesDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func slotFileName(name string) string {
	var n int
	if _, err := fmt.Sscanf(name, "slot-%d", &n); err == nil && SlotName(n) == name {
		return fmt.Sprintf("state-%d.state", n)
	}
	switch name {
	case SlotSRAM:
		return "cart.srm"
	default:
		return name + ".state"
	}
}

func slotFromFileName(file string) (string, bool) {
	if file == "cart.srm" {
		return SlotSRAM, true
	}
	base, ok := strings.CutSuffix(file, ".state")
	if !ok {
		return "", false
	}
	var n int
	if _, err := fmt.Sscanf(base, "state-%d", &n); err == nil && fmt.Sprintf("state-%d", n) == base {
		return SlotName(n), true
	}
	if ValidateName(base) != nil {
		return "", false
	}
	return base, true
}

func (s *FileStore) path(gameID, name string) string {
	return filepath.Join(s.dir, gameID, slotFileName(name))
}

// Put writes a slot atomically.
func (s *FileStore) Put(gameID, name string, data []byte) error {
	if err := checkKey(gameID, name); err != nil {
		return err
	}
	if err := storage.AtomicWriteFile(s.path(gameID, name), data); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}
	return nil
}

// Get reads a slot.
func (s *FileStore) Get(gameID, name string) ([]byte, error) {
	if err := checkKey(gameID, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(gameID, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", name, err)
	}
	return data, nil
}

// List returns the slots stored for a game.
func (s *FileStore) List(gameID string) ([]SlotInfo, error) {
	if err := ValidateName(gameID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, gameID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var slots []SlotInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := slotFromFileName(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		slots = append(slots, SlotInfo{Name: name, Size: fi.Size(), Modified: fi.ModTime()})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })
	return slots, nil
}

// Delete removes a slot.
func (s *FileStore) Delete(gameID, name string) error {
	if err := checkKey(gameID, name); err != nil {
		return err
	}
	err := os.Remove(s.path(gameID, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
