package filemanager

import (
	"bytes"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// mimeSniffLen is how many leading bytes Meta inspects when the extension is unknown.
const mimeSniffLen = 2048

// Generic content types.
const (
	MimeOctetStream = "application/octet-stream"
	MimeTextPlain   = "text/plain"
)

// textTypes covers extensions the platform mime table often lacks or maps to
// non-text types.
var textTypes = map[string]string{
	".txt":        "text/plain",
	".md":         "text/markdown",
	".markdown":   "text/markdown",
	".log":        "text/plain",
	".csv":        "text/csv",
	".tsv":        "text/tab-separated-values",
	".json":       "application/json",
	".yaml":       "application/yaml",
	".yml":        "application/yaml",
	".toml":       "application/toml",
	".xml":        "application/xml",
	".html":       "text/html",
	".htm":        "text/html",
	".css":        "text/css",
	".js":         "text/javascript",
	".mjs":        "text/javascript",
	".ts":         "text/typescript",
	".tsx":        "text/typescript",
	".go":         "text/x-go",
	".py":         "text/x-python",
	".rs":         "text/x-rust",
	".sh":         "application/x-sh",
	".ini":        "text/plain",
	".conf":       "text/plain",
	".env":        "text/plain",
	".sql":        "application/sql",
	".dockerfile": "text/plain",
}

// Meta describes how a file should be presented.
type Meta struct {
	Path     string `json:"path"`
	MimeType string `json:"mimeType"`
	IsText   bool   `json:"isText"`
}

// Meta reports the content type of a file. The extension decides when known;
// otherwise the first bytes are inspected for NUL.
func (m *Manager) Meta(rootID, rel string) (*Meta, error) {
	p, _, err := m.resolveFile(rootID, rel)
	if err != nil {
		return nil, err
	}

	if mt := MimeByExtension(p.AbsolutePath); mt != "" {
		return &Meta{Path: p.RelativePath, MimeType: mt, IsText: IsTextType(mt)}, nil
	}

	f, err := os.Open(p.AbsolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, mimeSniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return &Meta{Path: p.RelativePath, MimeType: MimeOctetStream}, nil
	}
	return &Meta{Path: p.RelativePath, MimeType: MimeTextPlain, IsText: true}, nil
}

// Open opens a regular file for streaming along with its content type.
// The caller closes the file.
func (m *Manager) Open(rootID, rel string) (*os.File, fs.FileInfo, string, error) {
	p, info, err := m.resolveFile(rootID, rel)
	if err != nil {
		return nil, nil, "", err
	}
	f, err := os.Open(p.AbsolutePath)
	if err != nil {
		return nil, nil, "", err
	}
	mt := MimeByExtension(p.AbsolutePath)
	if mt == "" {
		mt = MimeOctetStream
	}
	return f, info, mt, nil
}

// MimeByExtension returns the content type for the extension of name, or ""
// when it is unknown.
func MimeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := textTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		return mt
	}
	return ""
}

// IsTextType reports whether mt can be shown as text.
func IsTextType(mt string) bool {
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/yaml", "application/toml", "application/xml",
		"application/x-sh", "application/sql", "application/javascript":
		return true
	}
	return false
}
