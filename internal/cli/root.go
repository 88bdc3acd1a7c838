// Package cli implements the emudriver command line.
package cli

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/spf13/cobra"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// Backends are the factories selectable by name.
	Backends map[string]emucore.Factory
}

// NewRootCommand creates the root command with the given backends.
func NewRootCommand(backends map[string]emucore.Factory) *cobra.Command {
	opts := &RootOptions{Backends: backends}

	cmd := &cobra.Command{
		Use:   "emudriver",
		Short: "Run emulator backends in real time",
		Long: `emudriver runs an emulator backend against a media image with paced
video, synchronized audio, save slots and rewind.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file, JSON or YAML (default: application config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewSlotsCommand(opts))
	cmd.AddCommand(NewBackendsCommand(opts))
	cmd.AddCommand(NewIdentifyCommand(opts))

	return cmd
}

// configPath returns the config file in use.
func (o *RootOptions) configPath() (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	return storage.GetConfigPath()
}

// loadConfig reads the config file, or defaults when it doesn't exist.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.ConfigPath, err)
	}
	return cfg, nil
}

// backend looks up a factory by name.
func (o *RootOptions) backend(name string) (emucore.Factory, error) {
	f, ok := o.Backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, o.backendNames())
	}
	return f, nil
}

func (o *RootOptions) backendNames() []string {
	names := make([]string, 0, len(o.Backends))
	for name := range o.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// logger writes to w, adding source locations when verbose.
func (o *RootOptions) logger(w io.Writer) *log.Logger {
	flags := log.LstdFlags
	if o.Verbose {
		flags |= log.Lmicroseconds | log.Lshortfile
	}
	return log.New(w, "emudriver: ", flags)
}
