package commands

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/prefkit/bootstrap"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP until interrupted",
		Example: `  prefctl serve --folder ./api --folder ./web --port 7070
  curl 'localhost:7070/preferences/editor.tabSize?resource=file:///work/api/main.go'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.loadSettings(false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				s.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				s.Server.Port = port
			}
			if err := s.Server.Validate(); err != nil {
				return err
			}
			app, err := bootstrap.New(s)
			if err != nil {
				return err
			}
			if err := app.EnableServer(); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from settings, 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from settings, 7070)")
	return cmd
}
