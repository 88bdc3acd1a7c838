package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/driver"
	"github.com/user-none/emudriver/frontend"
	"github.com/user-none/emudriver/romloader"
	"github.com/user-none/emudriver/storage"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend  string
	Speed    float64
	Record   string
	SavesDir string
	Resume   bool
	Mute     bool
	DB       string
	Options  map[string]string

	// Present shows the session until ctx is done. Defaults to the window
	// frontend.
	Present func(ctx context.Context, d *driver.Driver, wc config.WindowConfig) error
	// DriverOptions are appended to the driver construction options.
	DriverOptions []driver.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <media>",
		Short: "Run a media image",
		Long: `Run a media image on a backend until the window is closed, the quit
hotkey is pressed or the process is interrupted.

Archives (zip, 7z, gzip, tar.gz, rar) are unpacked automatically.

Example:
  emudriver run game.tc
  emudriver run --speed 2 --option region=pal game.zip`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "testcard", "backend name")
	cmd.Flags().Float64Var(&opts.Speed, "speed", 0, "speed multiplier (0.1-10.0, default from config)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the audio output to a WAV file (bare names go to the recordings directory)")
	cmd.Flags().StringVar(&opts.SavesDir, "saves-dir", "", "save slot directory")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "load the resume slot on start")
	cmd.Flags().BoolVar(&opts.Mute, "mute", false, "mute audio")
	cmd.Flags().StringVar(&opts.DB, "db", "", "RetroArch RDB database used to identify the game and pick its region")
	cmd.Flags().StringToStringVarP(&opts.Options, "option", "o", nil, "backend option key=value")

	return cmd
}

// overrides applies flags on top of the loaded configuration.
func (o *RunOptions) overrides(cfg *config.Config) {
	if o.Speed != 0 {
		cfg.Speed.Multiplier = o.Speed
	}
	if o.Record != "" {
		cfg.Audio.Record = o.Record
		if filepath.Base(o.Record) == o.Record {
			if dir, err := storage.GetRecordingsDir(); err == nil {
				cfg.Audio.Record = filepath.Join(dir, o.Record)
			}
		}
	}
	if o.SavesDir != "" {
		cfg.Saves.Dir = o.SavesDir
	}
	if o.Resume {
		cfg.Saves.ResumeOnStart = true
	}
	if o.Mute {
		cfg.Audio.Muted = true
	}
	if len(o.Options) > 0 {
		if cfg.Backends == nil {
			cfg.Backends = make(map[string]map[string]string)
		}
		if cfg.Backends[o.Backend] == nil {
			cfg.Backends[o.Backend] = make(map[string]string)
		}
		for k, v := range o.Options {
			cfg.Backends[o.Backend][k] = v
		}
	}
}

func runSession(opts *RunOptions, path string, cmd *cobra.Command) error {
	factory, err := opts.backend(opts.Backend)
	if err != nil {
		return err
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	opts.overrides(cfg)
	if err := storage.EnsureDirectories(); err != nil {
		return err
	}

	media, err := romloader.Load(path, factory.SystemInfo().Extensions)
	if err != nil {
		return fmt.Errorf("failed to load media: %w", err)
	}

	logger := opts.logger(cmd.ErrOrStderr())
	if opts.DB != "" {
		applyGameDB(logger, opts.DB, media, opts.Backend, factory.SystemInfo(), cfg)
	}
	dopts := append([]driver.Option{driver.WithLogger(logger)}, opts.DriverOptions...)
	d, err := driver.New(factory, media, cfg, dopts...)
	if err != nil {
		return err
	}
	logger.Printf("Session %s: %s (%s) on %s", d.Session(), media.Name, media.ID, opts.Backend)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	present := opts.Present
	if present == nil {
		present = func(ctx context.Context, d *driver.Driver, wc config.WindowConfig) error {
			return frontend.Run(ctx, d, wc)
		}
	}

	// The window owns the calling goroutine; the run loop gets its own.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return d.Run(gctx)
	})
	presentErr := present(gctx, d, cfg.Window)
	cancel()
	runErr := g.Wait()

	printSummary(cmd.OutOrStdout(), d.Stats())
	if errors.Is(runErr, driver.ErrStalled) {
		return fmt.Errorf("backend stopped responding: %w", runErr)
	}
	return errors.Join(runErr, presentErr)
}

func printSummary(w io.Writer, s driver.Stats) {
	fmt.Fprintf(w, "frames: %d (presented %d, skipped %d), resyncs: %d\n",
		s.Frames, s.Presented, s.Skipped, s.Resyncs)
	if s.Audio.Overflows > 0 || s.Audio.Underruns > 0 {
		fmt.Fprintf(w, "audio: %d overflows, %d underruns\n", s.Audio.Overflows, s.Audio.Underruns)
	}
}
