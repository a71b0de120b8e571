package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/provider"
	"github.com/kbukum/prefkit/resilience"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/watcher"
)

var folder = uri.MustParse("/work/app")

func options(name string) provider.Options {
	return provider.Options{
		Folder:     folder,
		ConfigURI:  folder.Join(".vscode", name+".json"),
		ConfigName: name,
		ConfigPath: ".vscode",
		Section:    name != "settings",
	}
}

func fastRetry() resilience.RetryConfig {
	cfg := resilience.ReloadRetryConfig()
	cfg.MaxAttempts = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	return cfg
}

func newProvider(t *testing.T, fs afero.Fs, name string) *Provider {
	t.Helper()
	f := NewFactory(WithFS(fs), WithLogger(logger.NewNop()), WithRetry(fastRetry()))
	p, err := f.Create(options(name))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(p.Dispose)
	return p.(*Provider)
}

func ready(t *testing.T, p *Provider) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return p.Ready(ctx)
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) string {
	t.Helper()
	path := filepath.FromSlash("/work/app/.vscode/" + name + ".json")
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProvider_LoadsJSONWithComments(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "settings", `{
	// indentation
	"editor.tabSize": 2,
	"files.exclude": {"**/.git": true,},
}`)
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}

	resource := uri.MustParse("/work/app/main.go")
	res := p.Resolve("editor.tabSize", resource)
	if res.Value != 2.0 || !res.ConfigURI.Equal(options("settings").ConfigURI) {
		t.Errorf("Resolve() = %+v", res)
	}
	if res := p.Resolve("files.exclude", resource); !reflect.DeepEqual(res.Value, map[string]any{"**/.git": true}) {
		t.Errorf("Resolve(files.exclude) = %+v", res)
	}
	if _, ok := p.ConfigURI(resource); !ok {
		t.Error("ConfigURI() not found for an existing file")
	}
	if res := p.Resolve("editor.tabSize", uri.MustParse("/elsewhere/main.go")); res.Found() {
		t.Error("Resolve() answered for a resource outside the folder")
	}
}

func TestProvider_SectionExposedUnderName(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "launch", `{"version": "0.2.0", "configurations": [{"name": "run"}]}`)
	p := newProvider(t, fs, "launch")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}

	prefs := p.Preferences(uri.URI{})
	launch, ok := prefs["launch"].(map[string]any)
	if !ok || launch["version"] != "0.2.0" {
		t.Fatalf("Preferences() = %#v", prefs)
	}
	if res := p.Resolve("launch.version", uri.URI{}); res.Value != "0.2.0" {
		t.Errorf("Resolve(launch.version) = %+v", res)
	}
	if res := p.Resolve("version", uri.URI{}); res.Found() {
		t.Errorf("section keys leaked to the top level")
	}
}

func TestProvider_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if _, ok := p.ConfigURI(uri.URI{}); ok {
		t.Error("ConfigURI() found a missing file")
	}
	if got := p.Preferences(uri.URI{}); len(got) != 0 {
		t.Errorf("Preferences() = %v", got)
	}
}

func TestProvider_SetPreferenceCreatesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}

	var changes preference.ChangeSet
	p.OnChanged(func(cs preference.ChangeSet) { changes = cs })

	resource := uri.MustParse("/work/app/main.go")
	if !p.SetPreference(context.Background(), "editor.fontSize", 14, resource) {
		t.Fatal("SetPreference() = false")
	}

	data, err := afero.ReadFile(fs, filepath.FromSlash("/work/app/.vscode/settings.json"))
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if !strings.Contains(string(data), `"editor.fontSize": 14`) {
		t.Errorf("dotted name not stored flat and formatted:\n%s", data)
	}
	if res := p.Resolve("editor.fontSize", resource); res.Value != 14.0 {
		t.Errorf("Resolve() after write = %+v", res)
	}
	if c, ok := changes["editor.fontSize"]; !ok || c.NewValue != 14.0 || c.Scope != preference.ScopeFolder {
		t.Errorf("change = %+v", changes)
	}
}

func TestProvider_SetPreferenceKeepsOtherKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "settings", `{
	// keep me
	"a": 1,
	"b": {"c": 2}
}`)
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if !p.SetPreference(ctx, "a", 5, uri.URI{}) {
		t.Fatal("SetPreference(a) = false")
	}
	if !p.SetPreference(ctx, "b", nil, uri.URI{}) {
		t.Fatal("SetPreference(b, nil) = false")
	}
	want := map[string]any{"a": 5.0}
	if got := p.Preferences(uri.URI{}); !reflect.DeepEqual(got, want) {
		t.Errorf("Preferences() = %#v, want %#v", got, want)
	}
}

func TestProvider_SetPreferenceSection(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newProvider(t, fs, "launch")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		name  string
		pref  string
		value any
		want  bool
	}{
		{"key in section", "launch.version", "0.2.0", true},
		{"other section", "tasks.version", "2.0.0", false},
		{"default name", "editor.tabSize", 2, false},
		{"whole section must be an object", "launch", "nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.SetPreference(ctx, tt.pref, tt.value, uri.URI{}); got != tt.want {
				t.Errorf("SetPreference(%s) = %v, want %v", tt.pref, got, tt.want)
			}
		})
	}

	data, _ := afero.ReadFile(fs, filepath.FromSlash("/work/app/.vscode/launch.json"))
	if !strings.Contains(string(data), `"version": "0.2.0"`) {
		t.Errorf("section prefix not stripped:\n%s", data)
	}

	if !p.SetPreference(ctx, "launch", map[string]any{"configurations": []any{}}, uri.URI{}) {
		t.Fatal("replacing the whole section failed")
	}
	if res := p.Resolve("launch.version", uri.URI{}); res.Found() {
		t.Errorf("old section content survived: %+v", res)
	}
}

func TestProvider_SetPreferenceOutsideFolder(t *testing.T) {
	p := newProvider(t, afero.NewMemMapFs(), "settings")
	if p.SetPreference(context.Background(), "a", 1, uri.MustParse("/other/main.go")) {
		t.Error("SetPreference() accepted a resource outside the folder")
	}
}

func TestProvider_BrokenFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := writeFile(t, fs, "settings", `{"a": `)
	p := newProvider(t, fs, "settings")

	if err := ready(t, p); err == nil {
		t.Fatal("Ready() = nil, want the parse error")
	}
	if res := p.Resolve("a", uri.URI{}); res.Found() {
		t.Errorf("Resolve() on a broken file = %+v", res)
	}
	if p.SetPreference(context.Background(), "a", 1, uri.URI{}) {
		t.Error("SetPreference() overwrote an invalid file")
	}

	if err := afero.WriteFile(fs, path, []byte(`{"a": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.reload(context.Background()); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	if res := p.Resolve("a", uri.URI{}); res.Value != 1.0 {
		t.Errorf("Resolve() after fix = %+v", res)
	}
}

func TestProvider_ReloadKeepsContentOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := writeFile(t, fs, "settings", `{"a": 1}`)
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}

	_ = afero.WriteFile(fs, path, []byte(`{"a": 1, "b": `), 0o644)
	if err := p.reload(context.Background()); err == nil {
		t.Fatal("reload() of a broken file succeeded")
	}
	if res := p.Resolve("a", uri.URI{}); res.Value != 1.0 {
		t.Errorf("previous content lost: %+v", res)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]any
		wantErr bool
	}{
		{"empty", "", map[string]any{}, false},
		{"only comments", "// nothing\n/* here */", map[string]any{}, false},
		{"trailing comma", `{"a": [1, 2,],}`, map[string]any{"a": []any{1.0, 2.0}}, false},
		{"array top level", `[1]`, nil, true},
		{"truncated", `{"a": {`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestProvider_WatchesFile(t *testing.T) {
	dir := t.TempDir()
	w, err := watcher.New(watcher.WithDebounce(20*time.Millisecond), watcher.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	root := uri.FromPath(dir)
	opts := provider.Options{
		Folder:     root,
		ConfigURI:  root.Join(".vscode", "settings.json"),
		ConfigName: "settings",
		ConfigPath: ".vscode",
	}
	f := NewFactory(WithWatcher(w), WithLogger(logger.NewNop()), WithRetry(fastRetry()))
	created, err := f.Create(opts)
	if err != nil {
		t.Fatal(err)
	}
	p := created.(*Provider)
	defer p.Dispose()
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}

	changes := make(chan preference.ChangeSet, 4)
	p.OnChanged(func(cs preference.ChangeSet) { changes <- cs })

	if err := os.MkdirAll(filepath.Join(dir, ".vscode"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(opts.ConfigURI.FSPath(), []byte(`{"x": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cs := <-changes:
		if _, ok := cs["x"]; !ok {
			t.Errorf("change set = %v", cs.Names())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change after the file was created")
	}
	if res := p.Resolve("x", uri.URI{}); res.Value != true {
		t.Errorf("Resolve() = %+v", res)
	}
}

func TestProvider_InitialLoadReachesFirstSubscriber(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "settings", `{"editor.tabSize": 4}`)
	p := newProvider(t, fs, "settings")

	changes := make(chan preference.ChangeSet, 1)
	p.OnChanged(func(cs preference.ChangeSet) { changes <- cs })

	select {
	case cs := <-changes:
		if c, ok := cs["editor.tabSize"]; !ok || c.NewValue != float64(4) {
			t.Errorf("initial change set = %v", cs)
		}
	case <-time.After(time.Second):
		t.Fatal("initial load was not delivered to the first subscriber")
	}
	if err := ready(t, p); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func TestProvider_NullIsUndefined(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "settings", `{"editor.rulers": null, "editor.tabSize": 2}`)
	p := newProvider(t, fs, "settings")
	if err := ready(t, p); err != nil {
		t.Fatal(err)
	}

	if got := p.Resolve("editor.rulers", uri.URI{}); got.Found() {
		t.Errorf("Resolve(null) = %+v, want not found", got)
	}
	if got := p.Resolve("editor.tabSize", uri.URI{}); !got.Found() {
		t.Error("sibling of a null entry should still resolve")
	}
}
