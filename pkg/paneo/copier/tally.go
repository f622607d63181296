package copier

import (
	"context"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// Tally is the number of regular files and their total size under a path.
type Tally struct {
	Files int64
	Bytes int64
}

// Count walks root, following symlinks, and totals the files beneath it.
// A file root counts as one file. Entries that cannot be stat'ed are left out;
// the copy itself reports them when it reaches them.
func Count(ctx context.Context, root string) (Tally, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Tally{}, err
	}
	if !info.IsDir() {
		return Tally{Files: 1, Bytes: info.Size()}, nil
	}

	var files, bytes atomic.Int64
	conf := fastwalk.Config{
		Follow: true,
	}

	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries do not count
		}

		fi, statErr := fastwalk.StatDirEntry(path, d)
		if statErr != nil {
			return nil //nolint:nilerr // dangling symlinks do not count
		}
		if fi.IsDir() {
			return nil
		}

		files.Add(1)
		bytes.Add(fi.Size())
		return nil
	})
	if err != nil {
		return Tally{}, err
	}

	return Tally{Files: files.Load(), Bytes: bytes.Load()}, nil
}
