package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kbukum/prefkit/bootstrap"
	"github.com/kbukum/prefkit/event"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var topics []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream preference and workspace changes until interrupted",
		Long: `Watch the configuration files of every open folder and print an event
for each change. Events are printed as JSON lines with --json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range topics {
				if !slices.Contains(watchTopics, t) {
					return fmt.Errorf("unknown topic %q, expected one of %v", t, watchTopics)
				}
			}
			if len(topics) == 0 {
				topics = watchTopics
			}

			s, err := opts.loadSettings(false)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(s)
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				merged := make(chan event.Envelope)
				for _, t := range topics {
					ch, err := app.Bus.Subscribe(ctx, t)
					if err != nil {
						return err
					}
					go forward(ctx, ch, merged)
				}
				out := cmd.OutOrStdout()
				for {
					select {
					case <-ctx.Done():
						return nil
					case env := <-merged:
						if asJSON {
							if err := printLine(out, env); err != nil {
								return err
							}
							continue
						}
						fmt.Fprintln(out, eventColor.Sprint(env.Topic), string(env.Payload))
					}
				}
			})
		},
	}
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "only print events of this topic, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON lines")
	return cmd
}

var watchTopics = []string{event.TopicPreferencesChanged, event.TopicRootsChanged}

func forward(ctx context.Context, in <-chan event.Envelope, out chan<- event.Envelope) {
	for env := range in {
		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}
