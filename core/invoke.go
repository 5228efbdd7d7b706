package core

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

// Args holds the named inputs of a by-name invocation
type Args map[string]any

// Invocation is one by-name call of an operation. A non-nil Callback
// selects callback mode.
type Invocation struct {
	Op       string
	Args     Args
	Callback func(result any, err error)
}

// Mode returns the calling convention selected by inv
func (inv Invocation) Mode() backends.Mode {
	if inv.Callback != nil {
		return backends.ModeCallback
	}
	return backends.ModeBlocking
}

// Call dispatches inv by operation name. Every required input of the
// operation must be present in inv.Args; inputs the operation does not
// declare are ignored.
//
// In blocking mode Call returns the operation result: string for readFile,
// []byte for readBytes, bool for pathExists, time.Time for getMtime and nil
// otherwise. In callback mode Call returns (nil, nil) once the operation is
// scheduled and inv.Callback receives the outcome. Invocation and capability
// errors are returned directly in both modes.
func (d *Dispatcher) Call(ctx context.Context, inv Invocation) (any, error) {
	desc, ok := backends.Lookup(inv.Op)
	if !ok {
		return nil, fserr.Invocation("", "unknown operation %q", inv.Op)
	}
	mode := inv.Mode()
	for _, name := range desc.Inputs {
		if _, ok := inv.Args[name]; !ok {
			return nil, d.reject(desc.Op, mode, fserr.Invocation(desc.Name, "missing required input %q", name))
		}
	}

	var (
		path  string
		data  string
		count int
		err   error
	)
	switch desc.Op {
	case backends.OpUnlink:
		path, err = stringArg(desc, inv.Args, backends.InputFilename)
	default:
		path, err = stringArg(desc, inv.Args, backends.InputPath)
	}
	if err == nil && desc.Op == backends.OpWriteFile {
		data, err = stringArg(desc, inv.Args, backends.InputData)
	}
	if err == nil && desc.Op == backends.OpReadBytes {
		count, err = intArg(desc, inv.Args, backends.InputBytes)
	}
	if err != nil {
		return nil, d.reject(desc.Op, mode, err.(*fserr.Error))
	}

	if mode == backends.ModeCallback {
		return nil, d.callAsync(ctx, desc.Op, path, data, count, inv.Callback)
	}

	switch desc.Op {
	case backends.OpReadFile:
		return result(d.ReadFile(ctx, path))
	case backends.OpWriteFile:
		return nil, d.WriteFile(ctx, path, data)
	case backends.OpUnlink:
		return nil, d.Unlink(ctx, path)
	case backends.OpReadBytes:
		return result(d.ReadBytes(ctx, path, count))
	case backends.OpPathExists:
		return result(d.PathExists(ctx, path))
	case backends.OpGetMtime:
		return result(d.GetMtime(ctx, path))
	case backends.OpMkDir:
		return nil, d.MkDir(ctx, path)
	default:
		return nil, d.RmDir(ctx, path)
	}
}

func (d *Dispatcher) callAsync(ctx context.Context, op backends.Op, path, data string, count int, cb func(any, error)) error {
	switch op {
	case backends.OpReadFile:
		return d.ReadFileAsync(ctx, path, func(s string, err error) { cb(result(s, err)) })
	case backends.OpWriteFile:
		return d.WriteFileAsync(ctx, path, data, func(err error) { cb(nil, err) })
	case backends.OpUnlink:
		return d.UnlinkAsync(ctx, path, func(err error) { cb(nil, err) })
	case backends.OpReadBytes:
		return d.ReadBytesAsync(ctx, path, count, func(b []byte, err error) { cb(result(b, err)) })
	case backends.OpPathExists:
		return d.PathExistsAsync(ctx, path, func(ok bool, err error) { cb(result(ok, err)) })
	case backends.OpGetMtime:
		return d.GetMtimeAsync(ctx, path, func(t time.Time, err error) { cb(result(t, err)) })
	case backends.OpMkDir:
		return d.MkDirAsync(ctx, path, func(err error) { cb(nil, err) })
	default:
		return d.RmDirAsync(ctx, path, func(err error) { cb(nil, err) })
	}
}

// result boxes a typed outcome, dropping the value when err is set
func result[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func stringArg(desc backends.Operation, args Args, name string) (string, error) {
	s, ok := args[name].(string)
	if !ok {
		return "", fserr.Invocation(desc.Name, "input %q must be a string, got %T", name, args[name])
	}
	return s, nil
}

// intArg accepts any integer type, integral floats (decoded JSON) and
// decimal strings (command-line arguments)
func intArg(desc backends.Operation, args Args, name string) (int, error) {
	switch v := args[name].(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v), nil
		}
	case uint:
		if v <= math.MaxInt {
			return int(v), nil
		}
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		if uint64(v) <= math.MaxInt {
			return int(v), nil
		}
	case uint64:
		if v <= math.MaxInt {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && v > math.MinInt && v < math.MaxInt {
			return int(v), nil
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}
	return 0, fserr.Invocation(desc.Name, "input %q must be an integer, got %T", name, args[name])
}
