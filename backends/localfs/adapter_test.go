package localfs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/backends/localfs"
	"github.com/ebogdum/dualfs/fserr"
	"github.com/ebogdum/dualfs/internal/contracttest"
)

func TestContract(t *testing.T) {
	contracttest.Run(t, func(t *testing.T) (backends.Backend, string) {
		return localfs.NewAdapter(afero.NewOsFs(), 4, nil), t.TempDir()
	}, contracttest.Config{})
}

func TestContractRootedAdapter(t *testing.T) {
	contracttest.Run(t, func(t *testing.T) (backends.Backend, string) {
		adapter, err := localfs.NewLocalFSAdapter(filepath.Join(t.TempDir(), "root"), 2, nil)
		require.NoError(t, err)
		return adapter, "/"
	}, contracttest.Config{})
}

func fsErr(t *testing.T, err error) *fserr.Error {
	t.Helper()
	var fe *fserr.Error
	require.True(t, errors.As(err, &fe), "expected *fserr.Error, got %T: %v", err, err)
	return fe
}

func TestNoEntryKeepsProviderMessage(t *testing.T) {
	a := localfs.NewAdapter(afero.NewOsFs(), 1, nil)
	missing := filepath.Join(t.TempDir(), "missing.txt")

	_, err := a.ReadFile(context.Background(), missing)
	fe := fsErr(t, err)
	assert.Equal(t, fserr.KindNoEntry, fe.Kind)
	assert.Equal(t, "ENOENT", fe.Code)
	assert.Contains(t, err.Error(), "no such file or directory")
	assert.True(t, errors.Is(err, os.ErrNotExist), "cause must stay reachable")
}

func TestDirectoryMisuseCodes(t *testing.T) {
	ctx := context.Background()
	a := localfs.NewAdapter(afero.NewOsFs(), 1, nil)
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, a.WriteFile(ctx, file, "x"))

	err := a.Unlink(ctx, dir)
	assert.Equal(t, "EISDIR", fsErr(t, err).Code)
	assert.Contains(t, err.Error(), "EISDIR")

	err = a.RmDir(ctx, file)
	assert.Equal(t, "ENOTDIR", fsErr(t, err).Code)

	err = a.RmDir(ctx, dir)
	assert.Equal(t, "ENOTEMPTY", fsErr(t, err).Code)
}

func TestMkDirOverExistingFileIsSuccess(t *testing.T) {
	ctx := context.Background()
	a := localfs.NewAdapter(afero.NewOsFs(), 1, nil)
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, a.WriteFile(ctx, file, "x"))

	assert.NoError(t, a.MkDir(ctx, file))
	data, err := a.ReadFile(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, "x", data)
}

func TestReadOnlyProviderFailsWithIOError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	a := localfs.NewAdapter(afero.NewReadOnlyFs(afero.NewOsFs()), 1, nil)

	// reads pass through
	data, err := a.ReadFile(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, "hello", data)

	failures := map[string]error{
		"writeFile": a.WriteFile(ctx, file, "x"),
		"unlink":    a.Unlink(ctx, file),
		"mkDir":     a.MkDir(ctx, filepath.Join(dir, "new")),
		"rmDir":     a.RmDir(ctx, filepath.Join(dir, "sub")),
	}
	for op, err := range failures {
		fe := fsErr(t, err)
		assert.Equal(t, fserr.KindIO, fe.Kind, op)
		assert.Equal(t, "EPERM", fe.Code, op)
		assert.Equal(t, op, fe.Op)
	}
}

func TestMemMapProvider(t *testing.T) {
	ctx := context.Background()
	a := localfs.NewAdapter(afero.NewMemMapFs(), 1, nil)

	require.NoError(t, a.MkDir(ctx, "/data"))
	require.NoError(t, a.WriteFile(ctx, "/data/a.txt", "hello"))

	got, err := a.ReadBytes(ctx, "/data/a.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("hel"), got)

	ok, err := a.PathExists(ctx, "/data/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	mtime, err := a.GetMtime(ctx, "/data/a.txt")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), mtime, time.Minute)
}

func TestCallbackWorkersBoundConcurrency(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := localfs.NewAdapter(afero.NewOsFs(), 2, nil)

	const calls = 50
	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		a.PathExistsAsync(ctx, dir, func(ok bool, err error) {
			defer wg.Done()
			if err != nil || !ok {
				failures.Add(1)
			}
		})
	}

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(10 * time.Second):
		t.Fatal("callbacks did not complete")
	}
	assert.Zero(t, failures.Load())
}

func TestNewLocalFSAdapterCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	a, err := localfs.NewLocalFSAdapter(root, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "localfs", a.Name())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, a.WriteFile(context.Background(), "/f.txt", "x"))
	_, err = os.Stat(filepath.Join(root, "f.txt"))
	assert.NoError(t, err)
}
