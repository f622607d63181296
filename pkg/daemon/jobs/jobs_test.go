package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

// blockingTask reports one progress snapshot and then waits for release or
// cancellation.
type blockingTask struct {
	started chan struct{}
	release chan struct{}
	result  types.Result
	err     error
}

func newBlockingTask() *blockingTask {
	return &blockingTask{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingTask) Run(ctx context.Context, onProgress func(types.Progress)) (types.Result, error) {
	onProgress(types.Progress{TotalFiles: 2, ProcessedFiles: 1, CurrentFile: "src/a"})
	close(b.started)
	select {
	case <-b.release:
		return b.result, b.err
	case <-ctx.Done():
		return types.Result{}, copier.ErrCanceled
	}
}

func staticPlan(task Task) PlanFunc {
	return func(filemanager.CopyRequest) (Task, error) { return task, nil }
}

func waitTerminal(t *testing.T, s *Supervisor, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, err := s.Status(id)
		if err != nil {
			return false
		}
		job = j
		return j.Status.Terminal() && j.FinishedAt != nil
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestStart_PlanErrorRecordsNothing(t *testing.T) {
	boom := errors.New("bad request")
	s := New(func(filemanager.CopyRequest) (Task, error) { return nil, boom })

	id, err := s.Start(filemanager.CopyRequest{})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, id)
	assert.Empty(t, s.List())
}

func TestCompleted(t *testing.T) {
	task := newBlockingTask()
	task.result = types.Result{CopiedFiles: 2, CopiedDirectories: 1}
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{FromRootID: "root-1", FromPath: "src"})
	require.NoError(t, err)
	<-task.started

	job, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, int64(1), job.Progress.ProcessedFiles)
	assert.Equal(t, "src", job.Request.FromPath)

	close(task.release)
	job = waitTerminal(t, s, id)
	assert.Equal(t, StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, int64(2), job.Result.CopiedFiles)
	assert.Empty(t, job.Error)
}

func TestFailed(t *testing.T) {
	task := newBlockingTask()
	task.err = errors.New("disk full")
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started
	close(task.release)

	job := waitTerminal(t, s, id)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "disk full", job.Error)
	assert.Nil(t, job.Result)
}

func TestCancel_RunningJob(t *testing.T) {
	task := newBlockingTask()
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started

	job, err := s.Cancel(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, job.Status, "cancel is reported immediately")

	job = waitTerminal(t, s, id)
	assert.Equal(t, StatusCanceled, job.Status)
	assert.Nil(t, job.Result)
	assert.Empty(t, job.Error)
}

func TestCancel_TerminalIsNoop(t *testing.T) {
	task := newBlockingTask()
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started
	close(task.release)
	done := waitTerminal(t, s, id)

	for i := 0; i < 3; i++ {
		job, err := s.Cancel(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, done.FinishedAt, job.FinishedAt)
	}
}

func TestCancel_ResultDiscardedWhenTaskIgnoresContext(t *testing.T) {
	task := newBlockingTask()
	task.result = types.Result{CopiedFiles: 5}
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started

	_, err = s.Cancel(id)
	require.NoError(t, err)

	job := waitTerminal(t, s, id)
	assert.Equal(t, StatusCanceled, job.Status)
	assert.Nil(t, job.Result)
}

func TestNotFound(t *testing.T) {
	s := New(staticPlan(newBlockingTask()))

	_, err := s.Status("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Cancel("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_SortedByStart(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0

	s := New(func(filemanager.CopyRequest) (Task, error) {
		task := newBlockingTask()
		close(task.release)
		return task, nil
	})
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(-tick) * time.Minute)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Start(filemanager.CopyRequest{})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, s.Shutdown(context.Background()))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID, "latest start time is earliest here")
	assert.True(t, list[0].StartedAt.Before(list[1].StartedAt))
	assert.True(t, list[1].StartedAt.Before(list[2].StartedAt))

	running, total := s.Counts()
	assert.Equal(t, 0, running)
	assert.Equal(t, 3, total)
}

func TestSnapshotIsCopy(t *testing.T) {
	task := newBlockingTask()
	task.result = types.Result{CopiedFiles: 1}
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started
	close(task.release)
	job := waitTerminal(t, s, id)

	job.Result.CopiedFiles = 99
	again, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Result.CopiedFiles)
}

func TestShutdown_CancelsRunning(t *testing.T) {
	task := newBlockingTask()
	s := New(staticPlan(task))

	id, err := s.Start(filemanager.CopyRequest{})
	require.NoError(t, err)
	<-task.started

	running, _ := s.Counts()
	assert.Equal(t, 1, running)

	require.NoError(t, s.Shutdown(context.Background()))
	job, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, job.Status)
}

// newManager builds a filemanager over two temp roots with a tiny copy buffer.
func newManager(t *testing.T) (*filemanager.Manager, string, string) {
	t.Helper()
	a, b := t.TempDir(), t.TempDir()
	reg, err := roots.New([]roots.Root{
		{ID: "root-1", Name: "a", Path: a},
		{ID: "root-2", Name: "b", Path: b},
	})
	require.NoError(t, err)
	return filemanager.New(reg, filemanager.WithEngine(copier.New(copier.WithBufferSize(16)))), a, b
}

func TestRealCopy_Completes(t *testing.T) {
	m, a, b := newManager(t)
	require.NoError(t, os.MkdirAll(filepath.Join(a, "src", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a, "src", "one.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a, "src", "sub", "two.txt"), []byte("world!"), 0o644))

	s := New(FromManager(m))
	id, err := s.Start(filemanager.CopyRequest{FromRootID: "root-1", FromPath: "src", ToRootID: "root-2", Overwrite: true})
	require.NoError(t, err)

	job := waitTerminal(t, s, id)
	require.Equal(t, StatusCompleted, job.Status, job.Error)
	assert.Equal(t, types.Result{CopiedFiles: 2, CopiedDirectories: 2}, *job.Result)
	assert.Equal(t, int64(2), job.Progress.ProcessedFiles)
	assert.Equal(t, int64(11), job.Progress.ProcessedBytes)

	data, err := os.ReadFile(filepath.Join(b, "src", "sub", "two.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world!", string(data))
}

func TestRealCopy_StartValidatesSynchronously(t *testing.T) {
	m, _, _ := newManager(t)
	s := New(FromManager(m))

	_, err := s.Start(filemanager.CopyRequest{FromRootID: "root-9", ToRootID: "root-2"})
	assert.ErrorIs(t, err, roots.ErrUnknownRoot)

	_, err = s.Start(filemanager.CopyRequest{FromRootID: "root-1", FromPath: "../x", ToRootID: "root-2"})
	assert.ErrorIs(t, err, roots.ErrInvalidPath)
	assert.Empty(t, s.List())
}

// throttledTask wraps a real copy and parks it after the first streamed chunk
// until the test lets it continue.
type throttledTask struct {
	inner   Task
	once    sync.Once
	reached chan struct{}
	resume  chan struct{}
}

func (tt *throttledTask) Run(ctx context.Context, onProgress func(types.Progress)) (types.Result, error) {
	return tt.inner.Run(ctx, func(p types.Progress) {
		onProgress(p)
		if p.CurrentFileBytes > 0 {
			tt.once.Do(func() {
				close(tt.reached)
				<-tt.resume
			})
		}
	})
}

func TestRealCopy_CancelMidFileRemovesPartial(t *testing.T) {
	m, a, b := newManager(t)
	require.NoError(t, os.MkdirAll(filepath.Join(a, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a, "src", "big.bin"), []byte(strings.Repeat("x", 4096)), 0o644))

	tt := &throttledTask{reached: make(chan struct{}), resume: make(chan struct{})}
	s := New(func(req filemanager.CopyRequest) (Task, error) {
		plan, err := m.PlanCopy(req)
		if err != nil {
			return nil, err
		}
		tt.inner = plan
		return tt, nil
	})

	id, err := s.Start(filemanager.CopyRequest{FromRootID: "root-1", FromPath: "src", ToRootID: "root-2", Overwrite: true})
	require.NoError(t, err)
	<-tt.reached

	job, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, "src/big.bin", job.Progress.CurrentFile)
	assert.FileExists(t, filepath.Join(b, "src", "big.bin"))

	_, err = s.Cancel(id)
	require.NoError(t, err)
	close(tt.resume)

	job = waitTerminal(t, s, id)
	assert.Equal(t, StatusCanceled, job.Status)
	assert.Nil(t, job.Result)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoFileExists(t, filepath.Join(b, "src", "big.bin"), "partial file is removed on cancel")
	assert.DirExists(t, filepath.Join(b, "src"))
}
