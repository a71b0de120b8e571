package workspace

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/uri"
)

// Folder is one workspace root.
type Folder struct {
	URI  uri.URI `json:"uri"`
	Name string  `json:"name"`
}

// NewFolder returns a folder named after the last segment of u.
func NewFolder(u uri.URI) Folder {
	return Folder{URI: u, Name: u.Base()}
}

type workspaceFile struct {
	Folders []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"folders"`
}

// OpenFolders turns directory paths into folders. Relative paths are made
// absolute against the current directory.
func OpenFolders(paths ...string) ([]Folder, error) {
	folders := make([]Folder, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.InvalidInput("folder", err.Error())
		}
		folders = append(folders, NewFolder(uri.FromPath(abs)))
	}
	return dedupe(folders), nil
}

// OpenWorkspaceFile reads the folders of a .code-workspace file. The file is
// JSON with comments; relative folder paths are resolved against the
// directory holding the file.
func OpenWorkspaceFile(fs afero.Fs, path string) ([]Folder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.InvalidInput("workspace", err.Error())
	}
	data, err := afero.ReadFile(fs, abs)
	if err != nil {
		return nil, errors.ReadFailed(abs, err)
	}

	var wf workspaceFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &wf); err != nil {
		return nil, errors.ParseFailed(abs, err)
	}

	base := filepath.Dir(abs)
	folders := make([]Folder, 0, len(wf.Folders))
	for i, f := range wf.Folders {
		if f.Path == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("folders[%d].path", i), "is required")
		}
		p := f.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		folder := NewFolder(uri.FromPath(p))
		if f.Name != "" {
			folder.Name = f.Name
		}
		folders = append(folders, folder)
	}
	return dedupe(folders), nil
}

// dedupe drops folders whose URI appeared earlier, keeping order.
func dedupe(folders []Folder) []Folder {
	seen := make(map[string]struct{}, len(folders))
	out := folders[:0:0]
	for _, f := range folders {
		key := f.URI.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
