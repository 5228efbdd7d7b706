// Package localfs implements the dualfs contract on top of an afero.Fs
// provider. In production the provider is the host filesystem.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

const (
	fileMode os.FileMode = 0644
	dirMode  os.FileMode = 0755

	// DefaultCallbackWorkers bounds concurrent callback-mode operations
	DefaultCallbackWorkers = 16
)

// LocalFSAdapter implements the blocking and callback branches for an afero.Fs
type LocalFSAdapter struct {
	fs     afero.Fs
	sem    *semaphore.Weighted
	logger *zap.Logger
}

var (
	_ backends.Backend  = (*LocalFSAdapter)(nil)
	_ backends.Blocking = (*LocalFSAdapter)(nil)
	_ backends.Callback = (*LocalFSAdapter)(nil)
)

// NewLocalFSAdapter creates an adapter over the host filesystem. With an
// empty rootPath paths are used as given; otherwise they are resolved below
// rootPath, which is created if needed.
func NewLocalFSAdapter(rootPath string, callbackWorkers int64, logger *zap.Logger) (*LocalFSAdapter, error) {
	var fsys afero.Fs = afero.NewOsFs()
	if rootPath != "" {
		// Ensure root path exists
		if err := os.MkdirAll(rootPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create root path %s: %w", rootPath, err)
		}
		if _, err := os.Stat(rootPath); err != nil {
			return nil, fmt.Errorf("root path %s is not accessible: %w", rootPath, err)
		}
		fsys = afero.NewBasePathFs(fsys, rootPath)
	}
	return NewAdapter(fsys, callbackWorkers, logger), nil
}

// NewAdapter creates an adapter over any afero provider
func NewAdapter(fsys afero.Fs, callbackWorkers int64, logger *zap.Logger) *LocalFSAdapter {
	if callbackWorkers <= 0 {
		callbackWorkers = DefaultCallbackWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalFSAdapter{
		fs:     fsys,
		sem:    semaphore.NewWeighted(callbackWorkers),
		logger: logger,
	}
}

// Name returns "localfs"
func (a *LocalFSAdapter) Name() string { return "localfs" }

// Close closes any resources used by the storage backend
func (a *LocalFSAdapter) Close() error {
	// No resources to close for local filesystem
	return nil
}

// ReadFile returns the file contents as text
func (a *LocalFSAdapter) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", fserr.Translate("readFile", path, err)
	}
	return string(data), nil
}

// WriteFile creates or truncates path and writes data to it
func (a *LocalFSAdapter) WriteFile(ctx context.Context, path, data string) error {
	if err := afero.WriteFile(a.fs, path, []byte(data), fileMode); err != nil {
		return fserr.Translate("writeFile", path, err)
	}
	return nil
}

// Unlink removes a file. Directories are refused with EISDIR.
func (a *LocalFSAdapter) Unlink(ctx context.Context, filename string) error {
	info, err := a.fs.Stat(filename)
	if err != nil {
		return fserr.Translate("unlink", filename, err)
	}
	if info.IsDir() {
		return fserr.IO("unlink", filename, &os.PathError{Op: "unlink", Path: filename, Err: syscall.EISDIR})
	}
	if err := a.fs.Remove(filename); err != nil {
		return fserr.Translate("unlink", filename, err)
	}
	return nil
}

// ReadBytes reads up to n bytes from the start of the file. A file shorter
// than n yields the bytes that were read.
func (a *LocalFSAdapter) ReadBytes(ctx context.Context, path string, n int) (out []byte, err error) {
	file, err := a.fs.Open(path)
	if err != nil {
		return nil, fserr.Translate("readBytes", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			out, err = nil, fserr.IO("readBytes", path, closeErr)
		}
	}()

	// the section bounds the read without allocating n bytes up front
	data, err := io.ReadAll(io.NewSectionReader(file, 0, int64(n)))
	if err != nil {
		return nil, fserr.Translate("readBytes", path, err)
	}
	return data, nil
}

// PathExists reports whether path exists; provider failures report false
func (a *LocalFSAdapter) PathExists(ctx context.Context, path string) (bool, error) {
	ok, err := afero.Exists(a.fs, path)
	if err != nil {
		a.logger.Debug("Existence check failed", zap.String("path", path), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

// GetMtime returns the modification time of path
func (a *LocalFSAdapter) GetMtime(ctx context.Context, path string) (time.Time, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return time.Time{}, fserr.Translate("getMtime", path, err)
	}
	return info.ModTime(), nil
}

// MkDir creates a directory. An existing entry is success; every other
// failure, a missing parent included, is an IOError.
func (a *LocalFSAdapter) MkDir(ctx context.Context, path string) error {
	err := a.fs.Mkdir(path, dirMode)
	if err == nil || fserr.IsExist(err) {
		return nil
	}
	return fserr.IO("mkDir", path, err)
}

// RmDir removes an empty directory. An absent entry is success.
func (a *LocalFSAdapter) RmDir(ctx context.Context, path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		if fserr.IsNotExist(err) {
			return nil
		}
		return fserr.IO("rmDir", path, err)
	}
	if !info.IsDir() {
		return fserr.IO("rmDir", path, &os.PathError{Op: "rmdir", Path: path, Err: syscall.ENOTDIR})
	}
	if err := a.fs.Remove(path); err != nil {
		// removed concurrently
		if fserr.IsNotExist(err) {
			return nil
		}
		return fserr.IO("rmDir", path, err)
	}
	return nil
}
