package workspace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/prefkit/uri"
)

func folder(p string) Folder { return NewFolder(uri.MustParse(p)) }

func TestService_RootsBlocksUntilPublished(t *testing.T) {
	s := NewService()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Roots(ctx); err == nil {
		t.Fatal("Roots() should fail before publication")
	}

	done := make(chan []Folder, 1)
	go func() {
		roots, err := s.Roots(context.Background())
		if err != nil {
			t.Errorf("Roots() error = %v", err)
		}
		done <- roots
	}()

	s.SetRoots([]Folder{folder("/a")})
	select {
	case roots := <-done:
		if len(roots) != 1 || roots[0].URI.Path() != "/a" {
			t.Errorf("roots = %+v", roots)
		}
	case <-time.After(time.Second):
		t.Fatal("Roots() did not return after SetRoots")
	}
}

func TestService_EmptyFirstPublication(t *testing.T) {
	s := NewService()
	fired := 0
	s.OnChanged(func([]Folder) { fired++ })

	s.SetRoots(nil)
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	roots, err := s.Roots(context.Background())
	if err != nil || len(roots) != 0 {
		t.Errorf("Roots() = %v, %v", roots, err)
	}
	s.SetRoots(nil)
	if fired != 1 {
		t.Errorf("unchanged roots fired again")
	}
}

func TestService_Mutations(t *testing.T) {
	s := NewService()
	var events [][]Folder
	s.OnChanged(func(roots []Folder) { events = append(events, roots) })

	s.SetRoots([]Folder{folder("/a"), folder("/a"), folder("/b")})
	if got := len(s.TryGetRoots()); got != 2 {
		t.Fatalf("roots = %d, want 2 after dedupe", got)
	}

	tests := []struct {
		name    string
		op      func() bool
		want    bool
		wantLen int
	}{
		{"add new", func() bool { return s.AddRoot(folder("/c")) }, true, 3},
		{"add duplicate", func() bool { return s.AddRoot(folder("/a")) }, false, 3},
		{"remove existing", func() bool { return s.RemoveRoot(uri.MustParse("/b")) }, true, 2},
		{"remove missing", func() bool { return s.RemoveRoot(uri.MustParse("/zzz")) }, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(events)
			if got := tt.op(); got != tt.want {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
			if got := len(s.TryGetRoots()); got != tt.wantLen {
				t.Errorf("roots = %d, want %d", got, tt.wantLen)
			}
			fired := len(events) - before
			if tt.want && fired != 1 || !tt.want && fired != 0 {
				t.Errorf("fired %d events", fired)
			}
		})
	}
}

func TestService_StartPublishesInitialFolders(t *testing.T) {
	s := NewService(WithFolders(folder("/a")))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.TryGetRoots(); len(got) != 1 {
		t.Errorf("roots = %+v", got)
	}
	if h := s.Health(context.Background()); h.Status != "healthy" {
		t.Errorf("Health() = %+v", h)
	}
}

func TestOpenWorkspaceFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := filepath.FromSlash("/work")
	content := `{
	// comment
	"folders": [
		{"path": "api"},
		{"path": "/abs/web", "name": "frontend"},
		{"path": "api"},
	],
}`
	if err := afero.WriteFile(fs, filepath.Join(dir, "x.code-workspace"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	folders, err := OpenWorkspaceFile(fs, filepath.Join(dir, "x.code-workspace"))
	if err != nil {
		t.Fatalf("OpenWorkspaceFile() error = %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("folders = %+v, want 2", folders)
	}
	if folders[0].URI.Path() != "/work/api" || folders[0].Name != "api" {
		t.Errorf("folders[0] = %+v", folders[0])
	}
	if folders[1].URI.Path() != "/abs/web" || folders[1].Name != "frontend" {
		t.Errorf("folders[1] = %+v", folders[1])
	}
}

func TestOpenWorkspaceFile_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/bad.code-workspace", []byte(`{"folders": [`), 0o644)
	_ = afero.WriteFile(fs, "/nopath.code-workspace", []byte(`{"folders": [{"name": "x"}]}`), 0o644)

	for _, p := range []string{"/missing.code-workspace", "/bad.code-workspace", "/nopath.code-workspace"} {
		if _, err := OpenWorkspaceFile(fs, p); err == nil {
			t.Errorf("OpenWorkspaceFile(%s) should fail", p)
		}
	}
}
