// Package noop provides the reference backend: it implements both branches
// of the contract and every operation fails with NotImplemented. Partial
// backends embed it and override what they support.
package noop

import (
	"context"
	"time"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

// NoopAdapter is the NotImplemented reference backend
type NoopAdapter struct{}

var (
	_ backends.Backend  = (*NoopAdapter)(nil)
	_ backends.Blocking = (*NoopAdapter)(nil)
	_ backends.Callback = (*NoopAdapter)(nil)
)

// NewNoopAdapter creates a new reference backend
func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{}
}

// Name returns "noop"
func (n *NoopAdapter) Name() string { return "noop" }

// Close does nothing for noop backend
func (n *NoopAdapter) Close() error { return nil }

func notImplemented(op backends.Op) error {
	return fserr.NotImplemented(op.String())
}

// ReadFile always returns NotImplemented
func (n *NoopAdapter) ReadFile(ctx context.Context, path string) (string, error) {
	return "", notImplemented(backends.OpReadFile)
}

// WriteFile always returns NotImplemented
func (n *NoopAdapter) WriteFile(ctx context.Context, path, data string) error {
	return notImplemented(backends.OpWriteFile)
}

// Unlink always returns NotImplemented
func (n *NoopAdapter) Unlink(ctx context.Context, filename string) error {
	return notImplemented(backends.OpUnlink)
}

// ReadBytes always returns NotImplemented
func (n *NoopAdapter) ReadBytes(ctx context.Context, path string, count int) ([]byte, error) {
	return nil, notImplemented(backends.OpReadBytes)
}

// PathExists always returns NotImplemented
func (n *NoopAdapter) PathExists(ctx context.Context, path string) (bool, error) {
	return false, notImplemented(backends.OpPathExists)
}

// GetMtime always returns NotImplemented
func (n *NoopAdapter) GetMtime(ctx context.Context, path string) (time.Time, error) {
	return time.Time{}, notImplemented(backends.OpGetMtime)
}

// MkDir always returns NotImplemented
func (n *NoopAdapter) MkDir(ctx context.Context, path string) error {
	return notImplemented(backends.OpMkDir)
}

// RmDir always returns NotImplemented
func (n *NoopAdapter) RmDir(ctx context.Context, path string) error {
	return notImplemented(backends.OpRmDir)
}

// The callback branch reports NotImplemented through the continuation,
// synchronously.

func (n *NoopAdapter) ReadFileAsync(ctx context.Context, path string, done func(string, error)) {
	done("", notImplemented(backends.OpReadFile))
}

func (n *NoopAdapter) WriteFileAsync(ctx context.Context, path, data string, done func(error)) {
	done(notImplemented(backends.OpWriteFile))
}

func (n *NoopAdapter) UnlinkAsync(ctx context.Context, filename string, done func(error)) {
	done(notImplemented(backends.OpUnlink))
}

func (n *NoopAdapter) ReadBytesAsync(ctx context.Context, path string, count int, done func([]byte, error)) {
	done(nil, notImplemented(backends.OpReadBytes))
}

func (n *NoopAdapter) PathExistsAsync(ctx context.Context, path string, done func(bool, error)) {
	done(false, notImplemented(backends.OpPathExists))
}

func (n *NoopAdapter) GetMtimeAsync(ctx context.Context, path string, done func(time.Time, error)) {
	done(time.Time{}, notImplemented(backends.OpGetMtime))
}

func (n *NoopAdapter) MkDirAsync(ctx context.Context, path string, done func(error)) {
	done(notImplemented(backends.OpMkDir))
}

func (n *NoopAdapter) RmDirAsync(ctx context.Context, path string, done func(error)) {
	done(notImplemented(backends.OpRmDir))
}
