// Package backends defines the operation contract every dualfs backend
// satisfies, and the table of operations with their required inputs.
// It includes implementations for the local filesystem, S3 object storage,
// SQLite, Redis and a NotImplemented reference backend.
package backends

import (
	"context"
	"time"

	"github.com/ebogdum/dualfs/fserr"
)

// Op identifies one of the eight contract operations
type Op int

const (
	OpReadFile Op = iota
	OpWriteFile
	OpUnlink
	OpReadBytes
	OpPathExists
	OpGetMtime
	OpMkDir
	OpRmDir
)

// Mode is the calling convention of an invocation
type Mode int

const (
	// ModeBlocking runs the operation on the caller's goroutine
	ModeBlocking Mode = iota
	// ModeCallback returns immediately and reports through a continuation
	ModeCallback
)

func (m Mode) String() string {
	if m == ModeCallback {
		return "callback"
	}
	return "blocking"
}

// Required input names
const (
	InputPath     = "path"
	InputData     = "data"
	InputFilename = "filename"
	InputBytes    = "bytes"
)

// Operation describes the fixed shape of an Op
type Operation struct {
	Op     Op
	Name   string
	Inputs []string
	Errors []fserr.Kind
}

var operations = [...]Operation{
	OpReadFile:   {OpReadFile, "readFile", []string{InputPath}, []fserr.Kind{fserr.KindNoEntry, fserr.KindIO}},
	OpWriteFile:  {OpWriteFile, "writeFile", []string{InputPath, InputData}, []fserr.Kind{fserr.KindNoEntry, fserr.KindIO}},
	OpUnlink:     {OpUnlink, "unlink", []string{InputFilename}, []fserr.Kind{fserr.KindNoEntry, fserr.KindIO}},
	OpReadBytes:  {OpReadBytes, "readBytes", []string{InputPath, InputBytes}, []fserr.Kind{fserr.KindNoEntry, fserr.KindIO}},
	OpPathExists: {OpPathExists, "pathExists", []string{InputPath}, nil},
	OpGetMtime:   {OpGetMtime, "getMtime", []string{InputPath}, []fserr.Kind{fserr.KindNoEntry, fserr.KindIO}},
	OpMkDir:      {OpMkDir, "mkDir", []string{InputPath}, []fserr.Kind{fserr.KindIO}},
	OpRmDir:      {OpRmDir, "rmDir", []string{InputPath}, []fserr.Kind{fserr.KindIO}},
}

// String returns the operation name
func (o Op) String() string {
	if o < 0 || int(o) >= len(operations) {
		return "unknown"
	}
	return operations[o].Name
}

// Inputs returns a copy of the ordered required-input list of o
func (o Op) Inputs() []string {
	if o < 0 || int(o) >= len(operations) {
		return nil
	}
	return append([]string(nil), operations[o].Inputs...)
}

// Operations returns the descriptors of every operation, in Op order
func Operations() []Operation {
	out := make([]Operation, len(operations))
	for i, op := range operations {
		op.Inputs = append([]string(nil), op.Inputs...)
		op.Errors = append([]fserr.Kind(nil), op.Errors...)
		out[i] = op
	}
	return out
}

// Lookup finds an operation by name
func Lookup(name string) (Operation, bool) {
	for _, op := range Operations() {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Backend is implemented by every backend. A backend must also implement
// Blocking, Callback or both.
type Backend interface {
	// Name identifies the backend in logs, metrics and errors
	Name() string

	// Close releases resources held by the backend
	Close() error
}

// Blocking is the return-or-error branch of the contract
type Blocking interface {
	// ReadFile returns the file contents as text
	ReadFile(ctx context.Context, path string) (string, error)

	// WriteFile replaces the file contents; the parent directory must exist
	WriteFile(ctx context.Context, path, data string) error

	// Unlink removes a file
	Unlink(ctx context.Context, filename string) error

	// ReadBytes returns up to n bytes read from offset 0
	ReadBytes(ctx context.Context, path string, n int) ([]byte, error)

	// PathExists reports whether path exists. Only NotImplemented may be
	// returned as an error; provider failures report false.
	PathExists(ctx context.Context, path string) (bool, error)

	// GetMtime returns the last modification time
	GetMtime(ctx context.Context, path string) (time.Time, error)

	// MkDir creates a directory; an existing entry is not an error
	MkDir(ctx context.Context, path string) error

	// RmDir removes an empty directory; a missing entry is not an error
	RmDir(ctx context.Context, path string) error
}

// Callback is the continuation branch of the contract. Each method returns
// immediately and calls done exactly once when the operation completes.
type Callback interface {
	ReadFileAsync(ctx context.Context, path string, done func(string, error))
	WriteFileAsync(ctx context.Context, path, data string, done func(error))
	UnlinkAsync(ctx context.Context, filename string, done func(error))
	ReadBytesAsync(ctx context.Context, path string, n int, done func([]byte, error))
	PathExistsAsync(ctx context.Context, path string, done func(bool, error))
	GetMtimeAsync(ctx context.Context, path string, done func(time.Time, error))
	MkDirAsync(ctx context.Context, path string, done func(error))
	RmDirAsync(ctx context.Context, path string, done func(error))
}

// Capabilities lets a backend that implements a branch interface still
// report individual operations of that branch as unavailable.
type Capabilities interface {
	Supports(op Op, mode Mode) bool
}

// Supports reports whether b has an implementation of op in mode
func Supports(b Backend, op Op, mode Mode) bool {
	switch mode {
	case ModeBlocking:
		if _, ok := b.(Blocking); !ok {
			return false
		}
	case ModeCallback:
		if _, ok := b.(Callback); !ok {
			return false
		}
	default:
		return false
	}
	if c, ok := b.(Capabilities); ok {
		return c.Supports(op, mode)
	}
	return true
}
