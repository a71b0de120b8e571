package preference

import (
	"slices"
	"strings"

	"github.com/kbukum/prefkit/uri"
)

// Defaults for the configuration naming policy.
const (
	DefaultConfigName = "settings"
	DefaultExtension  = ".json"
)

var (
	DefaultPaths        = []string{".theia", ".vscode"}
	DefaultSectionNames = []string{"launch", "tasks"}
)

// Configurations is the naming policy that decides which files inside a
// folder hold preferences. Every folder gets one file per configuration path
// and logical name: <folder>/<path>/<name><ext>.
type Configurations struct {
	ConfigName   string
	Paths        []string
	SectionNames []string
	Extension    string
}

// DefaultConfigurations returns the settings/launch/tasks policy under
// .theia and .vscode.
func DefaultConfigurations() *Configurations {
	return &Configurations{
		ConfigName:   DefaultConfigName,
		Paths:        slices.Clone(DefaultPaths),
		SectionNames: slices.Clone(DefaultSectionNames),
		Extension:    DefaultExtension,
	}
}

// ConfigNames returns every logical name a folder is enumerated with:
// section names in declared order, then the default name.
func (c *Configurations) ConfigNames() []string {
	names := make([]string, 0, len(c.SectionNames)+1)
	names = append(names, c.SectionNames...)
	return append(names, c.ConfigName)
}

// PrecedenceOrder returns the order in which logical-name groups are merged.
// Later groups override earlier ones, so sections take precedence over the
// default name.
func (c *Configurations) PrecedenceOrder() []string {
	order := make([]string, 0, len(c.SectionNames)+1)
	order = append(order, c.ConfigName)
	return append(order, c.SectionNames...)
}

// CreateURI returns the location of the configPath/configName file in folder.
func (c *Configurations) CreateURI(folder uri.URI, configPath, configName string) uri.URI {
	return folder.Join(configPath, configName+c.Extension)
}

// Key returns the identity key of a (folder, configPath, configName) triple.
func (c *Configurations) Key(folder uri.URI, configPath, configName string) string {
	return c.CreateURI(folder, configPath, configName).String()
}

// IsConfigURI reports whether u names a file this policy manages.
func (c *Configurations) IsConfigURI(u uri.URI) bool {
	if u.IsZero() || u.Ext() != c.Extension {
		return false
	}
	return slices.Contains(c.ConfigNames(), c.Name(u)) && slices.Contains(c.Paths, c.Path(u))
}

// Name returns the logical config name of u: its base name without extension.
func (c *Configurations) Name(u uri.URI) string {
	return strings.TrimSuffix(u.Base(), u.Ext())
}

// Path returns the configuration path of u: the name of its directory.
func (c *Configurations) Path(u uri.URI) string {
	return u.Parent().Base()
}

// IsSectionName reports whether name is one of the section names.
func (c *Configurations) IsSectionName(name string) bool {
	return slices.Contains(c.SectionNames, name)
}

// ConfigNameFor returns the logical config name a preference is written to:
// its first dotted segment when that is a section name, otherwise the
// default name.
func (c *Configurations) ConfigNameFor(preferenceName string) string {
	first, _, _ := strings.Cut(preferenceName, ".")
	if c.IsSectionName(first) {
		return first
	}
	return c.ConfigName
}
