//go:build unix

package copier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

func TestCopy_ReadOnlySourceDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	base := t.TempDir()
	src := filepath.Join(base, "src")
	writeTree(t, src, map[string]string{
		"a.txt":     "abc",
		"sub/b.txt": "de",
	})
	require.NoError(t, os.Chmod(filepath.Join(src, "sub"), 0o555))
	require.NoError(t, os.Chmod(src, 0o555))
	t.Cleanup(func() {
		_ = os.Chmod(src, 0o755)
		_ = os.Chmod(filepath.Join(src, "sub"), 0o755)
		_ = filepath.Walk(filepath.Join(base, "dst"), func(p string, info os.FileInfo, err error) error {
			if err == nil && info.IsDir() {
				_ = os.Chmod(p, 0o755)
			}
			return nil
		})
	})

	dst := filepath.Join(base, "dst")
	res, err := New().Copy(context.Background(), src, dst, Options{Overwrite: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, types.Result{CopiedFiles: 2, CopiedDirectories: 2}, res)
	assert.Equal(t, "abc", readFile(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "de", readFile(t, filepath.Join(dst, "sub", "b.txt")))

	for _, dir := range []string{dst, filepath.Join(dst, "sub")} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o555), info.Mode().Perm(), dir)
	}
}

func TestCopy_MergeKeepsDestinationMode(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{
		"src/a.txt": "abc",
		"dst/keep":  "1",
	})
	require.NoError(t, os.Chmod(filepath.Join(base, "dst"), 0o750))

	_, err := New().Copy(context.Background(), filepath.Join(base, "src"), filepath.Join(base, "dst"), Options{}, nil)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(base, "dst"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestCopy_RejectsNamedPipe(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{"src/a.txt": "abc"})
	require.NoError(t, unix.Mkfifo(filepath.Join(base, "src", "pipe"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := New().Copy(ctx, filepath.Join(base, "src"), filepath.Join(base, "dst"), Options{}, nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrUnsupportedType)
		assert.ErrorIs(t, err, ErrCopyFailed)
		assert.NoFileExists(t, filepath.Join(base, "dst", "pipe"))
	case <-time.After(3 * time.Second):
		t.Fatal("copy blocked on a named pipe")
	}
}
