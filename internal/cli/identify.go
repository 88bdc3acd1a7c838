package cli

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/gamedb"
	"github.com/user-none/emudriver/romloader"
)

// IdentifyOptions holds flags for the identify command.
type IdentifyOptions struct {
	*RootOptions
	Backend string
	DB      string
}

// NewIdentifyCommand creates the identify command.
func NewIdentifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IdentifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "identify <media>",
		Short: "Show the game ID of a media image",
		Long: `Show the game ID save slots are keyed by. With --db the ID is looked up
in a RetroArch RDB database.

Example:
  emudriver identify game.zip
  emudriver identify --db "Sega - Master System - Mark III.rdb" game.sms`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := opts.backend(opts.Backend)
			if err != nil {
				return err
			}
			media, err := romloader.Load(args[0], factory.SystemInfo().Extensions)
			if err != nil {
				return fmt.Errorf("failed to load media: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id: %s\nname: %s\nsize: %d\n", media.ID, media.Name, len(media.Data))
			if opts.DB == "" {
				return nil
			}

			db, err := gamedb.Load(opts.DB)
			if err != nil {
				return err
			}
			e, ok := db.Lookup(media.ID)
			if !ok {
				fmt.Fprintf(out, "not found in %s (%d entries)\n", opts.DB, db.Len())
				return nil
			}
			fmt.Fprintf(out, "title: %s\n", e.DisplayName())
			fmt.Fprintf(out, "full name: %s\n", e.Name)
			if region, ok := e.Region(); ok {
				fmt.Fprintf(out, "region: %s\n", region)
			}
			if e.Developer != "" {
				fmt.Fprintf(out, "developer: %s\n", e.Developer)
			}
			if e.Publisher != "" {
				fmt.Fprintf(out, "publisher: %s\n", e.Publisher)
			}
			if e.ReleaseYear != 0 {
				fmt.Fprintf(out, "released: %d\n", e.ReleaseYear)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "testcard", "backend name")
	cmd.Flags().StringVar(&opts.DB, "db", "", "RetroArch RDB game database")

	return cmd
}

// applyGameDB looks the media up in the database at path. A known region
// is written to the backend's region option when that option is unset or
// auto. Lookup failures are logged and never stop a session.
func applyGameDB(logger *log.Logger, path string, media emucore.Media, backend string, info emucore.SystemInfo, cfg *config.Config) {
	db, err := gamedb.Load(path)
	if err != nil && db == nil {
		logger.Printf("Game database unavailable: %v", err)
		return
	}
	if err != nil {
		logger.Printf("Game database %s is damaged, using %d entries: %v", path, db.Len(), err)
	}
	e, ok := db.Lookup(media.ID)
	if !ok {
		logger.Printf("Game %s not in database", media.ID)
		return
	}
	logger.Printf("Identified %s as %s", media.ID, e.DisplayName())

	region, ok := e.Region()
	if !ok {
		return
	}
	opt, declared := info.Option("region")
	if !declared {
		return
	}
	value := strings.ToLower(region.String())
	valid := false
	for _, v := range opt.Values {
		if v == value {
			valid = true
		}
	}
	if !valid {
		return
	}

	if cfg.Backends == nil {
		cfg.Backends = make(map[string]map[string]string)
	}
	if cfg.Backends[backend] == nil {
		cfg.Backends[backend] = make(map[string]string)
	}
	if current := cfg.Backends[backend]["region"]; current != "" && current != "auto" {
		return
	}
	cfg.Backends[backend]["region"] = value
	logger.Printf("Region set to %s from %s", value, e.Name)
}
