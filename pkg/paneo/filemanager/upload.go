package filemanager

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// UploadTempDir is the directory, inside each root, that holds partial uploads.
const UploadTempDir = ".paneo-upload-tmp"

// ErrInvalidUpload is returned for malformed upload ids or chunk numbering.
var ErrInvalidUpload = errors.New("invalid upload")

var uploadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Chunk is one piece of a file upload.
type Chunk struct {
	RootID   string
	DirPath  string
	UploadID string
	// FilePath is relative to DirPath and may contain subdirectories.
	FilePath string
	Index    int
	Total    int
	Body     io.Reader
}

// UploadStatus reports the state of an upload after a chunk was written.
type UploadStatus struct {
	Done bool   `json:"done"`
	Path string `json:"path,omitempty"`
}

// WriteChunk appends a chunk to the partial file of its upload. The last
// chunk moves the completed file into place, creating parent directories.
func (m *Manager) WriteChunk(c Chunk) (UploadStatus, error) {
	if !uploadIDPattern.MatchString(c.UploadID) {
		return UploadStatus{}, fmt.Errorf("%w: bad upload id %q", ErrInvalidUpload, c.UploadID)
	}
	if c.Total < 1 || c.Index < 0 || c.Index >= c.Total {
		return UploadStatus{}, fmt.Errorf("%w: chunk %d of %d", ErrInvalidUpload, c.Index, c.Total)
	}

	dir, err := m.resolveDir(c.RootID, c.DirPath)
	if err != nil {
		return UploadStatus{}, err
	}
	rel, err := roots.Normalize(c.FilePath)
	if err != nil {
		return UploadStatus{}, err
	}
	if rel == "" {
		return UploadStatus{}, fmt.Errorf("%w: empty file path", ErrInvalidName)
	}
	target, err := m.roots.Child(dir, rel)
	if err != nil {
		return UploadStatus{}, err
	}

	tmpDir := filepath.Join(dir.Root.Path, UploadTempDir)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return UploadStatus{}, err
	}
	part := filepath.Join(tmpDir, c.UploadID+".part")

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if c.Index == 0 {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		return UploadStatus{}, err
	}
	if _, err := io.Copy(f, c.Body); err != nil {
		_ = f.Close()
		return UploadStatus{}, fmt.Errorf("writing chunk %d: %w", c.Index, err)
	}
	if err := f.Close(); err != nil {
		return UploadStatus{}, err
	}

	if c.Index < c.Total-1 {
		return UploadStatus{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(target.AbsolutePath), 0o755); err != nil {
		return UploadStatus{}, err
	}
	if err := os.Rename(part, target.AbsolutePath); err != nil {
		return UploadStatus{}, fmt.Errorf("finishing upload: %w", err)
	}
	removeIfEmpty(tmpDir)

	m.log.Info("upload finished", "root", c.RootID, "path", target.RelativePath, "chunks", c.Total)
	return UploadStatus{Done: true, Path: target.RelativePath}, nil
}

// CancelUploads removes the partial files of the given uploads. Unknown ids are ignored.
func (m *Manager) CancelUploads(rootID string, ids []string) error {
	root, err := m.roots.Get(rootID)
	if err != nil {
		return err
	}
	tmpDir := filepath.Join(root.Path, UploadTempDir)
	for _, id := range ids {
		if !uploadIDPattern.MatchString(id) {
			return fmt.Errorf("%w: bad upload id %q", ErrInvalidUpload, id)
		}
		err := os.Remove(filepath.Join(tmpDir, id+".part"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	removeIfEmpty(tmpDir)
	return nil
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
