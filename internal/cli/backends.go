package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	emucore "github.com/user-none/emudriver/api"
)

// NewBackendsCommand creates the backends command.
func NewBackendsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "backends",
		Short:        "List available backends and their options",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range rootOpts.backendNames() {
				info := rootOpts.Backends[name].SystemInfo()
				fmt.Fprintf(out, "%s: %s (%s)\n", name, info.ConsoleName, strings.Join(info.Extensions, ", "))
				if len(info.CoreOptions) == 0 {
					continue
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, o := range info.CoreOptions {
					reload := ""
					if o.RequiresReload {
						reload = "reload"
					}
					fmt.Fprintf(tw, "  %s\t%s\tdefault %s\t%s\n", o.Key, optionValues(o), o.Default, reload)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func optionValues(o emucore.CoreOption) string {
	switch o.Type {
	case emucore.CoreOptionBool:
		return "true|false"
	case emucore.CoreOptionSelect:
		return strings.Join(o.Values, "|")
	case emucore.CoreOptionRange:
		return fmt.Sprintf("%d-%d step %d", o.Min, o.Max, o.Step)
	}
	return ""
}
