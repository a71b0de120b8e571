package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRootsCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List the open workspace folders and their configuration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				roots := app.Workspace.TryGetRoots()
				if asJSON {
					return printJSON(cmd.OutOrStdout(), roots)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, f := range roots {
					fmt.Fprintf(tw, "%s\t%s\n", nameColor.Sprint(f.Name), f.URI.FSPath())
					for _, p := range app.Manager.FolderProviders(f.URI) {
						if u, ok := p.ConfigURI(f.URI); ok {
							fmt.Fprintf(tw, "\t%s\n", dimColor.Sprint(u.FSPath()))
						}
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
