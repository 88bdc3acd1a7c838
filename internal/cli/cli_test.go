package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/backend/testcard"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/driver"
	"github.com/user-none/emudriver/romloader"
	"github.com/user-none/emudriver/state"
)

var testMediaData = []byte("TCNT demo cartridge")

func testBackends() map[string]emucore.Factory {
	return map[string]emucore.Factory{"testcard": testcard.Factory{}}
}

func testRootOptions(t *testing.T) *RootOptions {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	return &RootOptions{
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Backends:   testBackends(),
	}
}

func writeMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.tc")
	require.NoError(t, os.WriteFile(path, testMediaData, 0644))
	return path
}

func execute(t *testing.T, root *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(root.Backends)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", root.ConfigPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestBackendsCommand(t *testing.T) {
	out, err := execute(t, testRootOptions(t), "backends")
	require.NoError(t, err)
	assert.Contains(t, out, "testcard: Test Card (.tc, .bin)")
	assert.Contains(t, out, "auto|ntsc|pal")
	assert.Contains(t, out, "reload")
}

func TestConfigValidate(t *testing.T) {
	root := testRootOptions(t)

	out, err := execute(t, root, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	cfg := config.DefaultConfig()
	cfg.Window.Scale = 0
	cfg.Audio.BufferMs = 5
	require.NoError(t, config.Save(root.ConfigPath, cfg))

	out, err = execute(t, root, "config", "validate")
	var rejection *config.RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Len(t, rejection.Problems, 2)
	assert.Contains(t, out, "window.scale")

	out, err = execute(t, root, "config", "validate", "--fix")
	require.NoError(t, err)
	assert.Contains(t, out, "fixed 2 problem(s)")

	fixed, err := config.Load(root.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 3, fixed.Window.Scale)
	assert.Equal(t, 80, fixed.Audio.BufferMs)
}

func TestConfigInitAndShow(t *testing.T) {
	root := testRootOptions(t)

	out, err := execute(t, root, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, root.ConfigPath)
	_, err = os.Stat(root.ConfigPath)
	require.NoError(t, err)

	out, err = execute(t, root, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hostSampleRate: 48000")
	assert.Contains(t, out, "scale: 3")
}

func TestSlotsListAndDelete(t *testing.T) {
	root := testRootOptions(t)
	media := writeMedia(t)
	saves := t.TempDir()

	store, err := state.NewFileStore(saves)
	require.NoError(t, err)
	require.NoError(t, store.Put(romloader.GameID(testMediaData), "quick", []byte("data")))
	require.NoError(t, store.Close())

	out, err := execute(t, root, "slots", "list", "--saves-dir", saves, media)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "quick")

	out, err = execute(t, root, "slots", "delete", "--saves-dir", saves, media, "quick")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted quick")

	out, err = execute(t, root, "slots", "list", "--saves-dir", saves, media)
	require.NoError(t, err)
	assert.Contains(t, out, "no slots")

	_, err = execute(t, root, "slots", "delete", "--saves-dir", saves, media, "quick")
	require.ErrorIs(t, err, state.ErrSlotNotFound)
}

func TestUnknownBackend(t *testing.T) {
	_, err := execute(t, testRootOptions(t), "slots", "list", "--backend", "nope", writeMedia(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestRunCommand(t *testing.T) {
	root := testRootOptions(t)
	saves := t.TempDir()
	media := writeMedia(t)

	var presented uint64
	opts := &RunOptions{
		RootOptions:   root,
		DriverOptions: []driver.Option{driver.WithoutAudio()},
		Present: func(ctx context.Context, d *driver.Driver, wc config.WindowConfig) error {
			assert.Equal(t, 3, wc.Scale)
			deadline := time.After(5 * time.Second)
			for d.Framebuffer().Seq() < 5 {
				select {
				case <-ctx.Done():
					return nil
				case <-deadline:
					t.Error("no frames presented")
					return nil
				case <-time.After(5 * time.Millisecond):
				}
			}
			presented = d.Framebuffer().Seq()
			return nil // window closed
		},
	}

	cmd := newRunCommand(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--saves-dir", saves, "--option", "palette=gray", media})
	require.NoError(t, cmd.Execute())

	assert.GreaterOrEqual(t, presented, uint64(5))
	assert.Contains(t, buf.String(), "frames:")

	// A clean exit writes the resume slot.
	store, err := state.NewFileStore(saves)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Get(romloader.GameID(testMediaData), state.SlotResume)
	require.NoError(t, err)
}

func TestRunRejectsBadOption(t *testing.T) {
	opts := &RunOptions{
		RootOptions:   testRootOptions(t),
		DriverOptions: []driver.Option{driver.WithoutAudio()},
		Present: func(context.Context, *driver.Driver, config.WindowConfig) error {
			t.Error("present should not be reached")
			return nil
		},
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--saves-dir", t.TempDir(), "--option", "palette=neon", writeMedia(t)})

	var rejection *config.RejectionError
	require.ErrorAs(t, cmd.Execute(), &rejection)
}

// writeGameDB writes a one entry RDB file for the test media.
func writeGameDB(t *testing.T, name string) string {
	t.Helper()
	var crc uint32
	_, err := fmt.Sscanf(romloader.GameID(testMediaData), "%08x", &crc)
	require.NoError(t, err)

	b := append([]byte("RARCHDB\x00"), make([]byte, 8)...)
	b = append(b, 0x82, 0xa4)
	b = append(b, "name"...)
	b = append(b, 0xd9, byte(len(name)))
	b = append(b, name...)
	b = append(b, 0xa3)
	b = append(b, "crc"...)
	b = append(b, 0xce, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc), 0xc0)

	path := filepath.Join(t.TempDir(), "test.rdb")
	require.NoError(t, os.WriteFile(path, b, 0644))
	return path
}

func TestIdentifyCommand(t *testing.T) {
	root := testRootOptions(t)
	media := writeMedia(t)

	out, err := execute(t, root, "identify", media)
	require.NoError(t, err)
	assert.Contains(t, out, "id: "+romloader.GameID(testMediaData))
	assert.Contains(t, out, "name: demo.tc")

	db := writeGameDB(t, "Demo Cartridge (Europe) (Rev 1)")
	out, err = execute(t, root, "identify", "--db", db, media)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Demo Cartridge")
	assert.Contains(t, out, "region: PAL")
}

func TestApplyGameDB(t *testing.T) {
	media := emucore.Media{Name: "demo.tc", Data: testMediaData, ID: romloader.GameID(testMediaData)}
	info := testcard.Factory{}.SystemInfo()
	logger := log.New(io.Discard, "", 0)
	db := writeGameDB(t, "Demo Cartridge (Europe)")

	cfg := config.DefaultConfig()
	applyGameDB(logger, db, media, "testcard", info, cfg)
	assert.Equal(t, "pal", cfg.Backends["testcard"]["region"])

	// An explicit region is kept.
	cfg = config.DefaultConfig()
	cfg.Backends = map[string]map[string]string{"testcard": {"region": "ntsc"}}
	applyGameDB(logger, db, media, "testcard", info, cfg)
	assert.Equal(t, "ntsc", cfg.Backends["testcard"]["region"])

	// A missing database leaves the config alone.
	cfg = config.DefaultConfig()
	applyGameDB(logger, filepath.Join(t.TempDir(), "missing.rdb"), media, "testcard", info, cfg)
	assert.Empty(t, cfg.Backends["testcard"]["region"])
}
