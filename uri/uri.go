// Package uri implements the file URI value type used to identify workspace
// folders, configuration files and the resources preferences are resolved for.
package uri

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/kbukum/prefkit/errors"
)

// SchemeFile is the only scheme configuration files are read from.
const SchemeFile = "file"

// URI is an immutable, cleaned, slash-separated location. The zero value
// means "no resource".
type URI struct {
	scheme string
	path   string
}

// Parse accepts "file:///a/b" style URIs and bare absolute slash paths.
// The empty string yields the zero URI.
func Parse(s string) (URI, error) {
	if s == "" {
		return URI{}, nil
	}
	if !strings.Contains(s, "://") {
		if !strings.HasPrefix(s, "/") {
			return URI{}, errors.InvalidURI(s, "path must be absolute")
		}
		return URI{scheme: SchemeFile, path: path.Clean(s)}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return URI{}, errors.InvalidURI(s, err.Error()).WithCause(err)
	}
	if u.Scheme == "" {
		return URI{}, errors.InvalidURI(s, "missing scheme")
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		return URI{}, errors.InvalidURI(s, "path must be absolute")
	}
	return URI{scheme: strings.ToLower(u.Scheme), path: path.Clean(p)}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// FromPath converts an absolute OS path into a file URI.
func FromPath(p string) URI {
	if p == "" {
		return URI{}
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	s := filepath.ToSlash(p)
	if !strings.HasPrefix(s, "/") {
		// Windows volume paths become /C:/...
		s = "/" + s
	}
	return URI{scheme: SchemeFile, path: path.Clean(s)}
}

// Scheme returns the URI scheme.
func (u URI) Scheme() string { return u.scheme }

// Path returns the slash-separated path component.
func (u URI) Path() string { return u.path }

// IsZero reports whether u is the "no resource" value.
func (u URI) IsZero() bool { return u.path == "" }

// FSPath returns the path in the host operating system's form.
func (u URI) FSPath() string {
	p := u.path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func (u URI) String() string {
	if u.IsZero() {
		return ""
	}
	return (&url.URL{Scheme: u.scheme, Path: u.path}).String()
}

// Equal reports whether both URIs denote the same location.
func (u URI) Equal(other URI) bool {
	return u.scheme == other.scheme && u.path == other.path
}

// Join appends path segments.
func (u URI) Join(segments ...string) URI {
	if u.IsZero() {
		return u
	}
	return URI{scheme: u.scheme, path: path.Join(append([]string{u.path}, segments...)...)}
}

// Parent returns the containing directory. The root is its own parent.
func (u URI) Parent() URI {
	if u.IsZero() {
		return u
	}
	return URI{scheme: u.scheme, path: path.Dir(u.path)}
}

// Base returns the last path element.
func (u URI) Base() string {
	if u.IsZero() {
		return ""
	}
	return path.Base(u.path)
}

// Ext returns the file name extension, including the dot.
func (u URI) Ext() string { return path.Ext(u.path) }

// IsEqualOrParent reports whether other is u or lies below it. Matching is
// segment aware: /a is not a parent of /ab.
func (u URI) IsEqualOrParent(other URI) bool {
	if u.IsZero() || other.IsZero() || u.scheme != other.scheme {
		return false
	}
	return Relativity(u.path, other.path) >= 0
}

// MarshalText implements encoding.TextMarshaler.
func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URI) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Relativity returns the number of path segments separating ancestor from p:
// 0 when they are equal, -1 when ancestor is not an ancestor-or-equal of p.
func Relativity(ancestor, p string) int {
	ancestor = path.Clean(ancestor)
	p = path.Clean(p)
	if ancestor == p {
		return 0
	}
	var rest string
	switch {
	case ancestor == "/":
		rest = strings.TrimPrefix(p, "/")
	case strings.HasPrefix(p, ancestor+"/"):
		rest = p[len(ancestor)+1:]
	default:
		return -1
	}
	if rest == "" {
		return 0
	}
	return strings.Count(rest, "/") + 1
}
