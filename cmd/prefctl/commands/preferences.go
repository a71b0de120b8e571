package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/preference"
)

func newGetCmd(opts *globalOptions) *cobra.Command {
	var showOrigin bool
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print the effective value of a preference",
		Example: `  prefctl get editor.tabSize
  prefctl get launch --resource src/main.go --origin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			res, err := opts.resourceURI()
			if err != nil {
				return err
			}
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				result := app.Manager.Resolve(ctx, name, res)
				if !result.Found() {
					return errors.NotFound("preference", name)
				}
				if err := printJSON(cmd.OutOrStdout(), result.Value); err != nil {
					return err
				}
				if showOrigin {
					fmt.Fprintln(cmd.ErrOrStderr(), dimColor.Sprint("from "+result.ConfigURI.String()))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showOrigin, "origin", false, "print the configuration file the value came from")
	return cmd
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var flat bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every preference that applies to the resource, merged",
		Long: `Print the merged preferences of the resource's folder as JSON. With --flat,
nested objects are collapsed into dotted keys, one "name": value pair per
preference, which is the form 'get' and 'set' accept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := opts.resourceURI()
			if err != nil {
				return err
			}
			app, err := opts.newApp()
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				prefs := app.Manager.Preferences(ctx, res)
				if flat {
					prefs = preference.Flatten(prefs)
				}
				return printJSON(cmd.OutOrStdout(), prefs)
			})
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "collapse nested objects into dotted names")
	return cmd
}

func newSetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Write a preference into the most specific folder's configuration",
		Long: `Write a preference. VALUE is parsed as JSON when it is valid JSON and
stored as a string otherwise, so 'set editor.tabSize 4' stores a number and
'set editor.fontFamily Fira' stores a string.

The value goes to the file that already defines the preference, else to a
file under the first configuration path, else to any file of the folder.`,
		Example: `  prefctl set editor.tabSize 4
  prefctl set files.exclude '{"**/node_modules": true}' --resource ./web`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.write(cmd, args[0], parseValue(args[1]))
		},
	}
}

func newUnsetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset NAME",
		Short: "Remove a preference from the folder's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.write(cmd, args[0], nil)
		},
	}
}

func (o *globalOptions) write(cmd *cobra.Command, name string, value any) error {
	res, err := o.resourceURI()
	if err != nil {
		return err
	}
	app, err := o.newApp()
	if err != nil {
		return err
	}
	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		if !app.Manager.SetPreference(ctx, name, value, res) {
			return errors.Rejected(name)
		}
		if value == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "removed", nameColor.Sprint(name))
			return nil
		}
		result := app.Manager.Resolve(ctx, name, res)
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", nameColor.Sprint(name), dimColor.Sprint("to "+result.ConfigURI.String()))
		return nil
	})
}

// parseValue reads s as JSON, falling back to a plain string.
func parseValue(s string) any {
	if gjson.Valid(s) {
		return gjson.Parse(s).Value()
	}
	return s
}
