package filemanager

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	IsDirectory bool      `json:"isDirectory"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
}

// Listing is the content of one directory.
type Listing struct {
	RootID     string  `json:"rootId"`
	RootName   string  `json:"rootName"`
	Path       string  `json:"path"`
	ParentPath *string `json:"parentPath"`
	Entries    []Entry `json:"entries"`
}

// List returns the entries of a directory, directories first, each group in
// natural name order. Symlinks are followed; dangling ones are left out.
func (m *Manager) List(rootID, rel string) (*Listing, error) {
	dir, err := m.resolveDir(rootID, rel)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(dir.AbsolutePath)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.Name() == UploadTempDir {
			continue
		}
		child, err := m.roots.Child(dir, d.Name())
		if err != nil {
			continue
		}
		info, err := os.Stat(child.AbsolutePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		e := Entry{
			Name:        d.Name(),
			Path:        child.RelativePath,
			IsDirectory: info.IsDir(),
			ModTime:     info.ModTime().UTC(),
		}
		if !e.IsDirectory {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}

	sortEntries(entries)

	listing := &Listing{
		RootID:   dir.Root.ID,
		RootName: dir.Root.Name,
		Path:     dir.RelativePath,
		Entries:  entries,
	}
	if parent, ok := dir.ParentPath(); ok {
		listing.ParentPath = &parent
	}
	return listing, nil
}

func sortEntries(entries []Entry) {
	col := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		if c := col.CompareString(entries[i].Name, entries[j].Name); c != 0 {
			return c < 0
		}
		return entries[i].Name < entries[j].Name
	})
}

// MaxTextSize is the largest file ReadText will return.
const MaxTextSize = 2 * 1024 * 1024

// binarySniffLen is how many leading bytes are checked for NUL.
const binarySniffLen = 1024

// TextFile is the content of a text file.
type TextFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ReadText returns the content of a text file for editing.
func (m *Manager) ReadText(rootID, rel string) (*TextFile, error) {
	p, info, err := m.resolveFile(rootID, rel)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxTextSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, p.RelativePath)
	}

	f, err := os.Open(p.AbsolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxTextSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, p.RelativePath)
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrBinary, p.RelativePath)
	}

	return &TextFile{Path: p.RelativePath, Content: string(data)}, nil
}

// WriteText replaces the content of a file, creating it if needed.
func (m *Manager) WriteText(rootID, rel, content string) error {
	p, err := m.roots.Resolve(rootID, rel)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return fmt.Errorf("%w: %s", ErrNotFile, p.Root.ID)
	}
	if err := os.WriteFile(p.AbsolutePath, []byte(content), 0o644); err != nil {
		return err
	}
	m.log.Debug("text written", "root", rootID, "path", p.RelativePath, "bytes", len(content))
	return nil
}
