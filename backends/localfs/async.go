package localfs

import (
	"context"
	"time"
)

// run executes fn on its own goroutine once a worker slot is free. Callers
// return immediately.
func (a *LocalFSAdapter) run(fn func()) {
	go func() {
		// cannot fail with a background context
		_ = a.sem.Acquire(context.Background(), 1)
		defer a.sem.Release(1)
		fn()
	}()
}

// ReadFileAsync is the callback form of ReadFile
func (a *LocalFSAdapter) ReadFileAsync(ctx context.Context, path string, done func(string, error)) {
	a.run(func() { done(a.ReadFile(ctx, path)) })
}

// WriteFileAsync is the callback form of WriteFile
func (a *LocalFSAdapter) WriteFileAsync(ctx context.Context, path, data string, done func(error)) {
	a.run(func() { done(a.WriteFile(ctx, path, data)) })
}

// UnlinkAsync is the callback form of Unlink
func (a *LocalFSAdapter) UnlinkAsync(ctx context.Context, filename string, done func(error)) {
	a.run(func() { done(a.Unlink(ctx, filename)) })
}

// ReadBytesAsync is the callback form of ReadBytes
func (a *LocalFSAdapter) ReadBytesAsync(ctx context.Context, path string, n int, done func([]byte, error)) {
	a.run(func() { done(a.ReadBytes(ctx, path, n)) })
}

// PathExistsAsync is the callback form of PathExists
func (a *LocalFSAdapter) PathExistsAsync(ctx context.Context, path string, done func(bool, error)) {
	a.run(func() { done(a.PathExists(ctx, path)) })
}

// GetMtimeAsync is the callback form of GetMtime
func (a *LocalFSAdapter) GetMtimeAsync(ctx context.Context, path string, done func(time.Time, error)) {
	a.run(func() { done(a.GetMtime(ctx, path)) })
}

// MkDirAsync is the callback form of MkDir
func (a *LocalFSAdapter) MkDirAsync(ctx context.Context, path string, done func(error)) {
	a.run(func() { done(a.MkDir(ctx, path)) })
}

// RmDirAsync is the callback form of RmDir
func (a *LocalFSAdapter) RmDirAsync(ctx context.Context, path string, done func(error)) {
	a.run(func() { done(a.RmDir(ctx, path)) })
}
