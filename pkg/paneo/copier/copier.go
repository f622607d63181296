// Package copier implements the recursive merge-copy engine.
//
// A copy replicates a file or directory tree at a destination path. Existing
// directories at the destination are merged into rather than replaced, and
// conflicting files or type mismatches are either overwritten or skipped
// depending on Options.Overwrite. File contents are streamed in chunks so that
// progress is reported per chunk and cancellation is honored within roughly
// one chunk.
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

var (
	// ErrSameSource is returned when source and destination are the same path.
	ErrSameSource = errors.New("destination is the same as source")

	// ErrIntoSelf is returned when a directory would be copied into its own subtree.
	ErrIntoSelf = errors.New("cannot copy a directory into itself")

	// ErrCanceled is returned when the context is canceled mid-copy.
	ErrCanceled = errors.New("copy canceled")

	// ErrCopyFailed wraps any unrecoverable I/O error.
	ErrCopyFailed = errors.New("copy failed")

	// ErrUnsupportedType is returned, wrapped in ErrCopyFailed, for entries
	// that are neither directories nor regular files (pipes, sockets, devices).
	ErrUnsupportedType = errors.New("unsupported file type")
)

// DefaultBufferSize is the streaming chunk size.
const DefaultBufferSize = 1 << 20

// ProgressFunc receives a full progress snapshot after every change.
type ProgressFunc func(types.Progress)

// Options controls a single copy.
type Options struct {
	// Overwrite replaces conflicting files and type mismatches instead of skipping them.
	Overwrite bool
}

// Engine performs copies. It holds no per-copy state and is safe for concurrent use.
type Engine struct {
	bufferSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBufferSize sets the chunk size used when streaming file contents.
func WithBufferSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bufferSize = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Copy replicates src at dst.
//
// Totals are tallied once before copying starts and are not revised if the
// source changes while the copy runs. A canceled or failed copy removes the
// file it was streaming but leaves files that were already completed.
func (e *Engine) Copy(ctx context.Context, src, dst string, opts Options, onProgress ProgressFunc) (types.Result, error) {
	src = filepath.Clean(src)
	dst = filepath.Clean(dst)

	if src == dst {
		return types.Result{}, ErrSameSource
	}

	r := &run{
		ctx:        ctx,
		opts:       opts,
		onProgress: onProgress,
		srcRoot:    src,
		buf:        make([]byte, e.bufferSize),
	}

	if err := r.checkCanceled(); err != nil {
		return types.Result{}, err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return types.Result{}, failed(err)
	}
	if srcInfo.IsDir() && isWithin(src, dst) {
		return types.Result{}, ErrIntoSelf
	}

	tally, err := Count(ctx, src)
	if err != nil {
		if ctxErr := r.checkCanceled(); ctxErr != nil {
			return types.Result{}, ctxErr
		}
		return types.Result{}, failed(err)
	}
	r.progress.TotalFiles = tally.Files
	r.progress.TotalBytes = tally.Bytes
	r.emit()

	if !srcInfo.IsDir() && !opts.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			r.progress.CurrentFile = filepath.Base(src)
			r.progress.CurrentFileTotalBytes = srcInfo.Size()
			r.skip(Tally{Files: 1, Bytes: srcInfo.Size()})
			return types.Result{Skipped: 1}, nil
		}
	}

	return r.copyEntry(src, dst, srcInfo)
}

// run carries the state of one copy. It is owned by the calling goroutine.
type run struct {
	ctx        context.Context
	opts       Options
	onProgress ProgressFunc
	srcRoot    string
	buf        []byte
	progress   types.Progress
}

func (r *run) emit() {
	if r.onProgress != nil {
		r.onProgress(r.progress)
	}
}

func (r *run) checkCanceled() error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}

// skip accounts for files that will not be copied exactly as if they had been.
func (r *run) skip(t Tally) {
	r.progress.Skipped += t.Files
	r.progress.ProcessedFiles += t.Files
	r.progress.ProcessedBytes += t.Bytes
	r.progress.CurrentFileBytes = r.progress.CurrentFileTotalBytes
	r.emit()
}

func (r *run) relative(path string) string {
	rel, err := filepath.Rel(filepath.Dir(r.srcRoot), path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (r *run) copyEntry(src, dst string, info fs.FileInfo) (types.Result, error) {
	if err := r.checkCanceled(); err != nil {
		return types.Result{}, err
	}
	switch {
	case info.IsDir():
		return r.copyDir(src, dst, info)
	case info.Mode().IsRegular():
		return r.copyFile(src, dst, info)
	default:
		// Opening a FIFO blocks until a writer appears, out of reach of ctx.
		return types.Result{}, failed(fmt.Errorf("%w %s: %s", ErrUnsupportedType, info.Mode().Type(), r.relative(src)))
	}
}

func (r *run) copyDir(src, dst string, info fs.FileInfo) (types.Result, error) {
	// Directories this copy creates stay owner-writable until their children
	// are in place; the source mode is applied afterwards.
	perm := info.Mode().Perm()
	var created bool

	dstInfo, err := os.Stat(dst)
	switch {
	case err == nil && !dstInfo.IsDir():
		if !r.opts.Overwrite {
			t, err := Count(r.ctx, src)
			if err != nil {
				if ctxErr := r.checkCanceled(); ctxErr != nil {
					return types.Result{}, ctxErr
				}
				return types.Result{}, failed(err)
			}
			r.progress.CurrentFile = r.relative(src)
			r.progress.CurrentFileBytes = 0
			r.progress.CurrentFileTotalBytes = 0
			r.skip(t)
			return types.Result{Skipped: t.Files}, nil
		}
		if err := os.RemoveAll(dst); err != nil {
			return types.Result{}, failed(err)
		}
		if err := os.Mkdir(dst, perm|0o700); err != nil {
			return types.Result{}, failed(err)
		}
		created = true
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Mkdir(dst, perm|0o700); err != nil {
			return types.Result{}, failed(err)
		}
		created = true
	case err != nil:
		return types.Result{}, failed(err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return types.Result{}, failed(err)
	}

	var res types.Result
	for _, entry := range entries {
		childSrc := filepath.Join(src, entry.Name())
		childInfo, err := os.Stat(childSrc)
		if err != nil {
			return res, failed(err)
		}
		childRes, err := r.copyEntry(childSrc, filepath.Join(dst, entry.Name()), childInfo)
		res = res.Add(childRes)
		if err != nil {
			return res, err
		}
	}

	if created && perm|0o700 != perm {
		if err := os.Chmod(dst, perm); err != nil {
			return res, failed(err)
		}
	}

	res.CopiedDirectories++
	return res, nil
}

func (r *run) copyFile(src, dst string, info fs.FileInfo) (types.Result, error) {
	size := info.Size()
	r.progress.CurrentFile = r.relative(src)
	r.progress.CurrentFileBytes = 0
	r.progress.CurrentFileTotalBytes = size
	r.emit()

	dstInfo, err := os.Stat(dst)
	switch {
	case err == nil && dstInfo.IsDir():
		if !r.opts.Overwrite {
			r.skip(Tally{Files: 1, Bytes: size})
			return types.Result{Skipped: 1}, nil
		}
		if err := os.RemoveAll(dst); err != nil {
			return types.Result{}, failed(err)
		}
	case err == nil:
		if !r.opts.Overwrite {
			r.skip(Tally{Files: 1, Bytes: size})
			return types.Result{Skipped: 1}, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return types.Result{}, failed(err)
	}

	if err := r.stream(src, dst, info.Mode().Perm()); err != nil {
		return types.Result{}, err
	}

	r.progress.CopiedFiles++
	r.progress.ProcessedFiles++
	r.progress.CurrentFileBytes = r.progress.CurrentFileTotalBytes
	r.emit()
	return types.Result{CopiedFiles: 1}, nil
}

// stream copies the bytes of src into dst, checking for cancellation before
// every chunk. On any failure the partially written dst is removed.
func (r *run) stream(src, dst string, perm fs.FileMode) (err error) {
	if err := r.checkCanceled(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return failed(err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	for {
		if err := r.checkCanceled(); err != nil {
			return err
		}

		n, readErr := in.Read(r.buf)
		if n > 0 {
			if _, err := out.Write(r.buf[:n]); err != nil {
				return failed(err)
			}
			r.progress.CurrentFileBytes += int64(n)
			r.progress.ProcessedBytes += int64(n)
			r.emit()
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return failed(readErr)
		}
	}

	if err := out.Close(); err != nil {
		return failed(err)
	}
	return nil
}

func failed(err error) error {
	if errors.Is(err, ErrCanceled) || errors.Is(err, ErrCopyFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCopyFailed, err)
}

// isWithin reports whether path lies strictly below dir.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
