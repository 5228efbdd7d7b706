package core

import (
	"context"
	"time"

	"github.com/ebogdum/dualfs/backends"
)

// PathExists reports whether path exists. It never fails on provider
// errors; the only error it returns is NotImplemented, Invocation or
// Capability.
func (d *Dispatcher) PathExists(ctx context.Context, path string) (bool, error) {
	const op = backends.OpPathExists
	if err := d.prepare(op, backends.ModeBlocking, path != ""); err != nil {
		return false, err
	}
	start := time.Now()
	exists, err := d.blocking.PathExists(ctx, path)
	exists, err = d.existence(path, exists, err)
	if err = d.finish(op, backends.ModeBlocking, path, start, err); err != nil {
		return false, err
	}
	return exists, nil
}

// PathExistsAsync is the callback form of PathExists
func (d *Dispatcher) PathExistsAsync(ctx context.Context, path string, done func(bool, error)) error {
	const op = backends.OpPathExists
	if err := d.prepareAsync(op, done != nil, path != ""); err != nil {
		return err
	}
	next := deliver(d, op, path, done)
	d.callback.PathExistsAsync(ctx, path, func(exists bool, err error) {
		next(d.existence(path, exists, err))
	})
	return nil
}

// GetMtime returns the last modification time of path
func (d *Dispatcher) GetMtime(ctx context.Context, path string) (time.Time, error) {
	const op = backends.OpGetMtime
	if err := d.prepare(op, backends.ModeBlocking, path != ""); err != nil {
		return time.Time{}, err
	}
	start := time.Now()
	mtime, err := d.blocking.GetMtime(ctx, path)
	if err = d.finish(op, backends.ModeBlocking, path, start, err); err != nil {
		return time.Time{}, err
	}
	return mtime, nil
}

// GetMtimeAsync is the callback form of GetMtime
func (d *Dispatcher) GetMtimeAsync(ctx context.Context, path string, done func(time.Time, error)) error {
	const op = backends.OpGetMtime
	if err := d.prepareAsync(op, done != nil, path != ""); err != nil {
		return err
	}
	d.callback.GetMtimeAsync(ctx, path, deliver(d, op, path, done))
	return nil
}

// MkDir creates the directory path; an existing entry is success
func (d *Dispatcher) MkDir(ctx context.Context, path string) error {
	const op = backends.OpMkDir
	if err := d.prepare(op, backends.ModeBlocking, path != ""); err != nil {
		return err
	}
	start := time.Now()
	err := d.blocking.MkDir(ctx, path)
	return d.finish(op, backends.ModeBlocking, path, start, err)
}

// MkDirAsync is the callback form of MkDir
func (d *Dispatcher) MkDirAsync(ctx context.Context, path string, done func(error)) error {
	const op = backends.OpMkDir
	if err := d.prepareAsync(op, done != nil, path != ""); err != nil {
		return err
	}
	d.callback.MkDirAsync(ctx, path, deliverErr(d, op, path, done))
	return nil
}

// RmDir removes the empty directory path; an absent entry is success
func (d *Dispatcher) RmDir(ctx context.Context, path string) error {
	const op = backends.OpRmDir
	if err := d.prepare(op, backends.ModeBlocking, path != ""); err != nil {
		return err
	}
	start := time.Now()
	err := d.blocking.RmDir(ctx, path)
	return d.finish(op, backends.ModeBlocking, path, start, err)
}

// RmDirAsync is the callback form of RmDir
func (d *Dispatcher) RmDirAsync(ctx context.Context, path string, done func(error)) error {
	const op = backends.OpRmDir
	if err := d.prepareAsync(op, done != nil, path != ""); err != nil {
		return err
	}
	d.callback.RmDirAsync(ctx, path, deliverErr(d, op, path, done))
	return nil
}
