// Package roots maps configured root directories to stable identifiers and
// resolves client-supplied relative paths inside them.
//
// Every filesystem operation in paneo goes through Registry.Resolve, which is
// the only place where a path coming from a client is turned into an absolute
// path on disk.
package roots

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrUnknownRoot is returned when a root id is not registered.
	ErrUnknownRoot = errors.New("unknown root")

	// ErrInvalidPath is returned for absolute paths and paths escaping their root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNoRoots is returned when the roots list is empty.
	ErrNoRoots = errors.New("no roots configured")
)

// Root is a configured top-level directory.
type Root struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"-"`
}

// ResolvedPath is a path confined to a root.
// AbsolutePath is either Root.Path or has the prefix Root.Path plus a separator.
type ResolvedPath struct {
	Root         Root
	RelativePath string
	AbsolutePath string
}

// Name returns the last element of the relative path, or the root name for the root itself.
func (p ResolvedPath) Name() string {
	if p.RelativePath == "" {
		return p.Root.Name
	}
	return p.RelativePath[strings.LastIndex(p.RelativePath, "/")+1:]
}

// IsRoot reports whether p points at the root directory itself.
func (p ResolvedPath) IsRoot() bool {
	return p.RelativePath == ""
}

// ParentPath returns the relative path of the parent directory.
// ok is false for the root itself.
func (p ResolvedPath) ParentPath() (parent string, ok bool) {
	if p.RelativePath == "" {
		return "", false
	}
	i := strings.LastIndex(p.RelativePath, "/")
	if i < 0 {
		return "", true
	}
	return p.RelativePath[:i], true
}

// Registry holds the configured roots. It is immutable after construction.
type Registry struct {
	roots []Root
	byID  map[string]Root
}

// New creates a registry from roots. Root paths are made absolute and cleaned.
func New(roots []Root) (*Registry, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	r := &Registry{
		roots: make([]Root, 0, len(roots)),
		byID:  make(map[string]Root, len(roots)),
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root.Path, err)
		}
		root.Path = filepath.Clean(abs)
		if root.Name == "" {
			root.Name = defaultName(root.Path)
		}
		if _, dup := r.byID[root.ID]; dup {
			return nil, fmt.Errorf("duplicate root id %q", root.ID)
		}
		r.roots = append(r.roots, root)
		r.byID[root.ID] = root
	}
	return r, nil
}

// Parse parses a roots list of the form "alias=/path;/other/path".
// Entries are separated by ';' or newlines. Ids are assigned as root-1..N in
// order. The name is the alias when given, otherwise the base name of the path.
func Parse(spec string) ([]Root, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ';' || r == '\n'
	})

	var out []Root
	for _, field := range fields {
		entry := strings.TrimSpace(field)
		if entry == "" {
			continue
		}

		name, path := "", entry
		if i := strings.Index(entry, "="); i > 0 {
			name = strings.TrimSpace(entry[:i])
			path = strings.TrimSpace(entry[i+1:])
		}
		if path == "" {
			return nil, fmt.Errorf("root %q has an empty path", entry)
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", path, err)
		}
		if name == "" {
			name = defaultName(abs)
		}

		out = append(out, Root{
			ID:   "root-" + strconv.Itoa(len(out)+1),
			Name: name,
			Path: filepath.Clean(abs),
		})
	}

	if len(out) == 0 {
		return nil, ErrNoRoots
	}
	return out, nil
}

// FromSpec parses spec and builds a registry.
func FromSpec(spec string) (*Registry, error) {
	parsed, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return New(parsed)
}

// Roots returns the configured roots in configuration order.
func (r *Registry) Roots() []Root {
	out := make([]Root, len(r.roots))
	copy(out, r.roots)
	return out
}

// Get returns the root registered under id.
func (r *Registry) Get(id string) (Root, error) {
	root, ok := r.byID[id]
	if !ok {
		return Root{}, fmt.Errorf("%w: %s", ErrUnknownRoot, id)
	}
	return root, nil
}

// Resolve confines rel to the root registered under id.
func (r *Registry) Resolve(id, rel string) (ResolvedPath, error) {
	root, err := r.Get(id)
	if err != nil {
		return ResolvedPath{}, err
	}

	clean, err := Normalize(rel)
	if err != nil {
		return ResolvedPath{}, err
	}

	abs := root.Path
	if clean != "" {
		abs = filepath.Join(root.Path, filepath.FromSlash(clean))
	}
	if !Contains(root.Path, abs) {
		return ResolvedPath{}, fmt.Errorf("%w: %q is outside root %s", ErrInvalidPath, rel, id)
	}

	return ResolvedPath{
		Root:         root,
		RelativePath: clean,
		AbsolutePath: abs,
	}, nil
}

// Child resolves name directly under p.
func (r *Registry) Child(p ResolvedPath, name string) (ResolvedPath, error) {
	if p.RelativePath == "" {
		return r.Resolve(p.Root.ID, name)
	}
	return r.Resolve(p.Root.ID, p.RelativePath+"/"+name)
}

// Normalize cleans a client-supplied relative path into slash-separated form
// with no leading or trailing slashes and no "." or ".." segments.
// Absolute paths and paths that climb above the root fail with ErrInvalidPath.
func Normalize(rel string) (string, error) {
	p := strings.TrimSpace(rel)
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || p == "." {
		return "", nil
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(rel) || hasDrivePrefix(p) {
		return "", fmt.Errorf("%w: absolute paths are not allowed: %q", ErrInvalidPath, rel)
	}
	p = strings.TrimPrefix(p, "./")

	segments := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return "", fmt.Errorf("%w: path traversal is not allowed: %q", ErrInvalidPath, rel)
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "/"), nil
}

// Contains reports whether abs is base or lies under it.
func Contains(base, abs string) bool {
	base = filepath.Clean(base)
	abs = filepath.Clean(abs)
	if abs == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(abs, prefix)
}

// hasDrivePrefix reports whether p starts with a Windows drive letter such as "C:".
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func defaultName(abs string) string {
	if base := filepath.Base(abs); base != "" && base != string(filepath.Separator) && base != "." {
		return base
	}
	return abs
}
