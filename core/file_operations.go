package core

import (
	"context"
	"time"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

// ReadFile returns the contents of path as text
func (d *Dispatcher) ReadFile(ctx context.Context, path string) (string, error) {
	const op = backends.OpReadFile
	if err := d.prepare(op, backends.ModeBlocking, path != ""); err != nil {
		return "", err
	}
	start := time.Now()
	data, err := d.blocking.ReadFile(ctx, path)
	if err = d.finish(op, backends.ModeBlocking, path, start, err); err != nil {
		return "", err
	}
	return data, nil
}

// ReadFileAsync is the callback form of ReadFile. Invocation and capability
// errors are returned directly and done is not called; otherwise done is
// called exactly once.
func (d *Dispatcher) ReadFileAsync(ctx context.Context, path string, done func(string, error)) error {
	const op = backends.OpReadFile
	if err := d.prepareAsync(op, done != nil, path != ""); err != nil {
		return err
	}
	d.callback.ReadFileAsync(ctx, path, deliver(d, op, path, done))
	return nil
}

// WriteFile replaces the contents of path with data
func (d *Dispatcher) WriteFile(ctx context.Context, path, data string) error {
	const op = backends.OpWriteFile
	if err := d.prepare(op, backends.ModeBlocking, path != "", true); err != nil {
		return err
	}
	start := time.Now()
	err := d.blocking.WriteFile(ctx, path, data)
	return d.finish(op, backends.ModeBlocking, path, start, err)
}

// WriteFileAsync is the callback form of WriteFile
func (d *Dispatcher) WriteFileAsync(ctx context.Context, path, data string, done func(error)) error {
	const op = backends.OpWriteFile
	if err := d.prepareAsync(op, done != nil, path != "", true); err != nil {
		return err
	}
	d.callback.WriteFileAsync(ctx, path, data, deliverErr(d, op, path, done))
	return nil
}

// Unlink removes the file filename
func (d *Dispatcher) Unlink(ctx context.Context, filename string) error {
	const op = backends.OpUnlink
	if err := d.prepare(op, backends.ModeBlocking, filename != ""); err != nil {
		return err
	}
	start := time.Now()
	err := d.blocking.Unlink(ctx, filename)
	return d.finish(op, backends.ModeBlocking, filename, start, err)
}

// UnlinkAsync is the callback form of Unlink
func (d *Dispatcher) UnlinkAsync(ctx context.Context, filename string, done func(error)) error {
	const op = backends.OpUnlink
	if err := d.prepareAsync(op, done != nil, filename != ""); err != nil {
		return err
	}
	d.callback.UnlinkAsync(ctx, filename, deliverErr(d, op, filename, done))
	return nil
}

// ReadBytes returns up to n raw bytes from the start of path
func (d *Dispatcher) ReadBytes(ctx context.Context, path string, n int) ([]byte, error) {
	const op = backends.OpReadBytes
	if err := d.prepare(op, backends.ModeBlocking, path != "", true); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, d.reject(op, backends.ModeBlocking, negativeCount(n))
	}
	start := time.Now()
	data, err := d.blocking.ReadBytes(ctx, path, n)
	if err = d.finish(op, backends.ModeBlocking, path, start, err); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadBytesAsync is the callback form of ReadBytes
func (d *Dispatcher) ReadBytesAsync(ctx context.Context, path string, n int, done func([]byte, error)) error {
	const op = backends.OpReadBytes
	if err := d.prepareAsync(op, done != nil, path != "", true); err != nil {
		return err
	}
	if n < 0 {
		return d.reject(op, backends.ModeCallback, negativeCount(n))
	}
	d.callback.ReadBytesAsync(ctx, path, n, deliver(d, op, path, done))
	return nil
}

func negativeCount(n int) *fserr.Error {
	return fserr.Invocation(backends.OpReadBytes.String(), "input %q must not be negative, got %d", backends.InputBytes, n)
}

// prepareAsync is prepare for the callback branch; the continuation is a
// required input of every callback invocation.
func (d *Dispatcher) prepareAsync(op backends.Op, hasDone bool, present ...bool) error {
	if !hasDone {
		return d.reject(op, backends.ModeCallback, fserr.Invocation(op.String(), "missing continuation"))
	}
	return d.prepare(op, backends.ModeCallback, present...)
}
