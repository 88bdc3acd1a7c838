package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user-none/emudriver/driver"
	"github.com/user-none/emudriver/romloader"
	"github.com/user-none/emudriver/state"
)

// SlotsOptions holds flags for the slots commands.
type SlotsOptions struct {
	*RootOptions
	Backend  string
	SavesDir string
}

// NewSlotsCommand creates the slots command group.
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage the save slots of a media image",
	}
	cmd.PersistentFlags().StringVarP(&opts.Backend, "backend", "b", "testcard", "backend name")
	cmd.PersistentFlags().StringVar(&opts.SavesDir, "saves-dir", "", "save slot directory")

	cmd.AddCommand(&cobra.Command{
		Use:          "list <media>",
		Short:        "List stored slots",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(args[0], func(store state.Store, gameID string) error {
				slots, err := store.List(gameID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(slots) == 0 {
					fmt.Fprintf(out, "no slots for %s\n", gameID)
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
				for _, s := range slots {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Size, s.Modified.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "delete <media> <slot>",
		Short:        "Delete a stored slot",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(args[0], func(store state.Store, gameID string) error {
				if err := store.Delete(gameID, args[1]); err != nil {
					return fmt.Errorf("delete %s: %w", args[1], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return nil
			})
		},
	})

	return cmd
}

// withStore identifies the media at path and opens the configured store.
func (o *SlotsOptions) withStore(path string, fn func(state.Store, string) error) error {
	factory, err := o.backend(o.Backend)
	if err != nil {
		return err
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if o.SavesDir != "" {
		cfg.Saves.Dir = o.SavesDir
	}
	media, err := romloader.Load(path, factory.SystemInfo().Extensions)
	if err != nil {
		return fmt.Errorf("failed to load media: %w", err)
	}
	store, err := driver.OpenStore(cfg.Saves)
	if err != nil {
		return fmt.Errorf("open slot store: %w", err)
	}
	defer store.Close()
	return fn(store, media.ID)
}
