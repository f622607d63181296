package filemanager

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// DefaultArchiveName is used when several entries are downloaded without a name.
const DefaultArchiveName = "download.zip"

// Download is a validated set of entries to send to a client.
type Download struct {
	Entries []roots.ResolvedPath
	single  bool
}

// PrepareDownload resolves the requested entries. A single regular file is
// sent as is; anything else is sent as a zip archive.
func (m *Manager) PrepareDownload(rootID string, paths []string) (*Download, error) {
	if len(paths) == 0 {
		paths = []string{""}
	}

	d := &Download{Entries: make([]roots.ResolvedPath, 0, len(paths))}
	var onlyFile bool
	for _, rel := range paths {
		p, err := m.roots.Resolve(rootID, rel)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(p.AbsolutePath)
		if err != nil {
			return nil, err
		}
		onlyFile = info.Mode().IsRegular()
		d.Entries = append(d.Entries, p)
	}
	d.single = len(d.Entries) == 1 && onlyFile
	return d, nil
}

// IsSingleFile reports whether the download is one regular file.
func (d *Download) IsSingleFile() bool {
	return d.single
}

// ArchiveName returns name with a .zip suffix, or a name derived from the entries.
func (d *Download) ArchiveName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		if len(d.Entries) != 1 {
			return DefaultArchiveName
		}
		name = d.Entries[0].Name()
	}
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		name += ".zip"
	}
	return name
}

// WriteZip streams the entries as a zip archive. Each entry is stored under
// its own name; directories keep their structure.
func (d *Download) WriteZip(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, entry := range d.Entries {
		if err := addToZip(ctx, zw, entry.AbsolutePath, entry.Name()); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addToZip(ctx context.Context, zw *zip.Writer, abs, name string) error {
	return filepath.WalkDir(abs, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := os.Stat(path)
		if err != nil {
			// Dangling symlinks are left out of archives.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = name
		} else {
			rel = name + "/" + filepath.ToSlash(rel)
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = rel
		if info.IsDir() {
			hdr.Name += "/"
			_, err := zw.CreateHeader(hdr)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		hdr.Method = zip.Deflate

		out, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(out, f); err != nil {
			return fmt.Errorf("archiving %s: %w", rel, err)
		}
		return nil
	})
}
