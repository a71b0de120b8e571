package preference

import (
	"reflect"
	"testing"

	"github.com/kbukum/prefkit/uri"
)

func TestConfigurations_Names(t *testing.T) {
	c := DefaultConfigurations()
	if got := c.ConfigNames(); !reflect.DeepEqual(got, []string{"launch", "tasks", "settings"}) {
		t.Errorf("ConfigNames() = %v", got)
	}
	if got := c.PrecedenceOrder(); !reflect.DeepEqual(got, []string{"settings", "launch", "tasks"}) {
		t.Errorf("PrecedenceOrder() = %v", got)
	}
}

func TestConfigurations_URIs(t *testing.T) {
	c := DefaultConfigurations()
	folder := uri.MustParse("file:///w")
	u := c.CreateURI(folder, ".vscode", "launch")
	if u.String() != "file:///w/.vscode/launch.json" {
		t.Fatalf("CreateURI() = %q", u)
	}
	if c.Key(folder, ".vscode", "launch") != u.String() {
		t.Error("Key must equal the config URI string")
	}
	if c.Name(u) != "launch" || c.Path(u) != ".vscode" {
		t.Errorf("Name/Path = %q/%q", c.Name(u), c.Path(u))
	}

	tests := []struct {
		in   string
		want bool
	}{
		{"file:///w/.vscode/settings.json", true},
		{"file:///w/.theia/tasks.json", true},
		{"file:///w/.idea/settings.json", false},
		{"file:///w/.vscode/other.json", false},
		{"file:///w/.vscode/settings.yaml", false},
	}
	for _, tt := range tests {
		if got := c.IsConfigURI(uri.MustParse(tt.in)); got != tt.want {
			t.Errorf("IsConfigURI(%q) = %v", tt.in, got)
		}
	}
}

func TestConfigurations_ConfigNameFor(t *testing.T) {
	c := DefaultConfigurations()
	tests := map[string]string{
		"launch":                "launch",
		"launch.configurations": "launch",
		"tasks.version":         "tasks",
		"editor.tabSize":        "settings",
		"launcher.x":            "settings",
	}
	for name, want := range tests {
		if got := c.ConfigNameFor(name); got != want {
			t.Errorf("ConfigNameFor(%q) = %q, want %q", name, got, want)
		}
	}
}
