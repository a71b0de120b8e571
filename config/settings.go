package config

import (
	"slices"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/server"
	"github.com/kbukum/prefkit/validation"
	"github.com/kbukum/prefkit/watcher"
)

// Settings is the full configuration of a prefkit process.
//
//	name: prefkit
//	logging:
//	  level: debug
//	preferences:
//	  config_name: settings
//	  paths: [.theia, .vscode]
//	  section_names: [launch, tasks]
//	workspace:
//	  folders: [/home/me/project]
//	server:
//	  port: 7070
type Settings struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Preferences   PreferencesConfig    `yaml:"preferences" mapstructure:"preferences"`
	Workspace     WorkspaceConfig      `yaml:"workspace" mapstructure:"workspace"`
	Watcher       watcher.Config       `yaml:"watcher" mapstructure:"watcher"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// PreferencesConfig controls which files in a folder hold preferences.
type PreferencesConfig struct {
	ConfigName   string   `yaml:"config_name" mapstructure:"config_name" validate:"required,configname"`
	Paths        []string `yaml:"paths" mapstructure:"paths" validate:"required,min=1,unique,dive,configpath"`
	SectionNames []string `yaml:"section_names" mapstructure:"section_names" validate:"unique,dive,configname"`
	Extension    string   `yaml:"extension" mapstructure:"extension" validate:"required,fileext"`
}

// WorkspaceConfig lists the folders opened at startup. A workspace file
// takes precedence over the folder list.
type WorkspaceConfig struct {
	File    string   `yaml:"file" mapstructure:"file"`
	Folders []string `yaml:"folders" mapstructure:"folders"`
}

// ApplyDefaults fills every unset field.
func (s *Settings) ApplyDefaults() {
	s.ServiceConfig.ApplyDefaults()
	s.Preferences.ApplyDefaults()
	s.Watcher.ApplyDefaults()
	s.Server.ApplyDefaults()
	s.Observability.ApplyDefaults(s.Name)
}

// Validate checks every section and returns the first failure.
func (s *Settings) Validate() error {
	if err := s.ServiceConfig.Validate(); err != nil {
		return errors.InvalidConfig(err.Error())
	}
	if err := s.Preferences.Validate(); err != nil {
		return err
	}
	if err := s.Server.Validate(); err != nil {
		return errors.InvalidConfig(err.Error())
	}
	return nil
}

// ApplyDefaults fills in the settings/launch/tasks policy.
func (p *PreferencesConfig) ApplyDefaults() {
	if p.ConfigName == "" {
		p.ConfigName = preference.DefaultConfigName
	}
	if len(p.Paths) == 0 {
		p.Paths = slices.Clone(preference.DefaultPaths)
	}
	if p.SectionNames == nil {
		p.SectionNames = slices.Clone(preference.DefaultSectionNames)
	}
	if p.Extension == "" {
		p.Extension = preference.DefaultExtension
	}
}

// Validate checks the naming policy. Section names must differ from the
// default config name.
func (p *PreferencesConfig) Validate() error {
	if err := validation.Validate(p); err != nil {
		return err
	}
	if slices.Contains(p.SectionNames, p.ConfigName) {
		return errors.InvalidConfig("preferences.section_names must not contain the config name " + p.ConfigName)
	}
	return nil
}

// Configurations converts the settings into the naming policy used by the engine.
func (p *PreferencesConfig) Configurations() *preference.Configurations {
	return &preference.Configurations{
		ConfigName:   p.ConfigName,
		Paths:        slices.Clone(p.Paths),
		SectionNames: slices.Clone(p.SectionNames),
		Extension:    p.Extension,
	}
}

// LoadSettings loads, defaults and validates Settings.
func LoadSettings(opts ...LoaderOption) (*Settings, error) {
	var s Settings
	if err := Load("prefkit", &s, opts...); err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
