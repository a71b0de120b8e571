// Package commands implements the prefctl CLI.
package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/prefkit/bootstrap"
	"github.com/kbukum/prefkit/config"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile    string
	folders       []string
	workspaceFile string
	logLevel      string
	resource      string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "prefctl",
		Short: "Folder-scoped preferences for multi-root workspaces",
		Long: `prefctl resolves preferences from the settings files of every open
workspace folder. The most specific folder containing a resource wins, and
section files such as launch.json and tasks.json override settings.json.

Run 'prefctl get editor.tabSize' inside a project, or 'prefctl serve' to
expose the engine over HTTP.`,
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "prefkit settings file (default: ./prefkit.yml)")
	pf.StringSliceVarP(&opts.folders, "folder", "f", nil, "workspace folder to open, repeatable (default: current directory)")
	pf.StringVarP(&opts.workspaceFile, "workspace", "w", "", "open the folders of a .code-workspace file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVarP(&opts.resource, "resource", "r", "", "file or directory preferences are resolved for (default: current directory)")

	root.AddCommand(
		newGetCmd(opts),
		newListCmd(opts),
		newSetCmd(opts),
		newUnsetCmd(opts),
		newRootsCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// loadSettings reads the settings file and applies command line overrides.
// quiet lowers the default log level for one-shot commands.
func (o *globalOptions) loadSettings(quiet bool) (*config.Settings, error) {
	var loadOpts []config.LoaderOption
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}
	s, err := config.LoadSettings(loadOpts...)
	if err != nil {
		return nil, err
	}

	switch {
	case o.workspaceFile != "":
		s.Workspace.File = o.workspaceFile
	case len(o.folders) > 0:
		s.Workspace.File = ""
		s.Workspace.Folders = o.folders
	case s.Workspace.File == "" && len(s.Workspace.Folders) == 0:
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		s.Workspace.Folders = []string{wd}
	}

	switch {
	case o.logLevel != "":
		s.Logging.Level = o.logLevel
	case quiet:
		s.Logging.Level = "warn"
	}
	return s, nil
}

// newApp builds the engine for a one-shot command. File watching is off
// since the process exits right after the task.
func (o *globalOptions) newApp() (*bootstrap.App, error) {
	s, err := o.loadSettings(true)
	if err != nil {
		return nil, err
	}
	s.Watcher.Disabled = true
	return bootstrap.New(s)
}

// resourceURI turns --resource into a URI. Plain paths are resolved
// against the current directory.
func (o *globalOptions) resourceURI() (uri.URI, error) {
	if strings.Contains(o.resource, "://") {
		return uri.Parse(o.resource)
	}
	p := o.resource
	if p == "" {
		p = "."
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return uri.URI{}, err
	}
	return uri.FromPath(abs), nil
}
