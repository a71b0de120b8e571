package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/prefkit/errors"
)

type fakeFS struct {
	files     map[string]bool
	loadedEnv []string
	configDir string
}

func (f *fakeFS) Exists(path string) bool   { return f.files[path] }
func (f *fakeFS) LoadEnv(path string) error { f.loadedEnv = append(f.loadedEnv, path); return nil }
func (f *fakeFS) UserConfigDir() (string, error) {
	return f.configDir, nil
}

func TestResolver_ResolveFiles(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		opts       LoaderConfig
		wantConfig string
		wantEnv    string
	}{
		{"nothing found", nil, LoaderConfig{}, "", ""},
		{"local file", []string{"./prefkit.yml", ".env"}, LoaderConfig{}, "./prefkit.yml", ".env"},
		{"config dir preferred over user dir", []string{"./config/prefkit.yml", "/home/u/.config/prefkit/config.yml"}, LoaderConfig{}, "./config/prefkit.yml", ""},
		{"user config dir", []string{"/home/u/.config/prefkit/config.yml", ".env.prefkit", ".env"}, LoaderConfig{}, "/home/u/.config/prefkit/config.yml", ".env.prefkit"},
		{"explicit wins", []string{"./prefkit.yml"}, LoaderConfig{ConfigFile: "/etc/p.yml", EnvFile: "/etc/p.env"}, "/etc/p.yml", "/etc/p.env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeFS{files: map[string]bool{}, configDir: "/home/u/.config"}
			for _, f := range tt.files {
				fs.files[f] = true
			}
			r := &Resolver{FileSystem: fs}
			got := r.ResolveFiles("prefkit", tt.opts)
			if got.ConfigFile != tt.wantConfig || got.EnvFile != tt.wantEnv {
				t.Errorf("ResolveFiles() = %+v, want config=%q env=%q", got, tt.wantConfig, tt.wantEnv)
			}
		})
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SERVER_READ_TIMEOUT")
	for _, want := range []string{"server_read_timeout", "server.read.timeout", "server.read_timeout"} {
		if !slices.Contains(got, want) {
			t.Errorf("variants %v missing %q", got, want)
		}
	}
	if got := envKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("single segment variants = %v", got)
	}
}

func TestLoadSettings_FromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefkit.yml")
	content := `
name: prefkit-test
environment: staging
preferences:
  config_name: settings
  paths: [".vscode"]
  section_names: ["launch"]
workspace:
  folders: ["/w/a", "/w/b"]
server:
  port: 7070
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PREFKIT_SERVER_HOST", "127.0.0.1")

	s, err := LoadSettings(WithConfigFile(path), WithFileSystem(&RealFileSystem{}))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Name != "prefkit-test" || s.Environment != "staging" {
		t.Errorf("unexpected service config %+v", s.ServiceConfig)
	}
	if !slices.Equal(s.Preferences.Paths, []string{".vscode"}) || !slices.Equal(s.Preferences.SectionNames, []string{"launch"}) {
		t.Errorf("unexpected preferences %+v", s.Preferences)
	}
	if s.Preferences.Extension != ".json" {
		t.Errorf("expected default extension, got %q", s.Preferences.Extension)
	}
	if len(s.Workspace.Folders) != 2 {
		t.Errorf("unexpected folders %v", s.Workspace.Folders)
	}
	if s.Server.Port != 7070 || s.Server.Host != "127.0.0.1" {
		t.Errorf("unexpected server config %+v", s.Server)
	}

	configs := s.Preferences.Configurations()
	if configs.ConfigName != "settings" || !configs.IsSectionName("launch") || configs.IsSectionName("tasks") {
		t.Errorf("unexpected configurations %+v", configs)
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{}}
	s, err := LoadSettings(WithFileSystem(fs))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Name != "prefkit" || s.Environment != "development" {
		t.Errorf("unexpected defaults %+v", s.ServiceConfig)
	}
	if !slices.Equal(s.Preferences.Paths, []string{".theia", ".vscode"}) {
		t.Errorf("unexpected default paths %v", s.Preferences.Paths)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	var s Settings
	err := Load("prefkit", &s, WithConfigFile("/nope/prefkit.yml"), WithFileSystem(&fakeFS{files: map[string]bool{}}))
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPreferencesConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PreferencesConfig
		wantErr string
	}{
		{"defaults", PreferencesConfig{}, ""},
		{"section equals config name", PreferencesConfig{SectionNames: []string{"settings"}}, "section_names"},
		{"bad path", PreferencesConfig{Paths: []string{"../x"}}, "paths"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
