package fserr

import (
	"errors"
	"io/fs"

	pkgerrors "github.com/pkg/errors"
)

// NoEntry wraps a provider "no such entry" failure, keeping its message.
func NoEntry(op, path string, cause error) *Error {
	return &Error{
		Kind: KindNoEntry,
		Op:   op,
		Path: path,
		Code: "ENOENT",
		Msg:  cause.Error(),
		Err:  pkgerrors.WithStack(cause),
	}
}

// IO wraps any other provider failure. The platform code of cause is
// prefixed to the message.
func IO(op, path string, cause error) *Error {
	return IOCode(op, path, PlatformCode(cause), cause)
}

// IOCode is IO with a code supplied by the backend, for providers whose codes
// are not errno values (S3 error codes, SQLite result codes).
func IOCode(op, path, code string, cause error) *Error {
	msg := cause.Error()
	if code != "" {
		msg = code + " " + msg
	}
	return &Error{
		Kind: KindIO,
		Op:   op,
		Path: path,
		Code: code,
		Msg:  msg,
		Err:  pkgerrors.WithStack(cause),
	}
}

// Translate maps a raw provider error into the taxonomy: not-exist failures
// become NoEntry, everything else IOError. Errors already in the taxonomy are
// returned unchanged.
func Translate(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if IsNotExist(err) {
		return NoEntry(op, path, err)
	}
	return IO(op, path, err)
}

// IsNotExist reports whether a raw provider error means "no such entry".
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsExist reports whether a raw provider error means "already exists".
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// PlatformCode extracts a symbolic code such as "ENOENT" from err. Errors
// that carry no errno are classified by their io/fs sentinel; anything else
// yields "EIO".
func PlatformCode(err error) string {
	if code, ok := errnoCode(err); ok {
		return code
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "ENOENT"
	case errors.Is(err, fs.ErrExist):
		return "EEXIST"
	case errors.Is(err, fs.ErrPermission):
		return "EACCES"
	case errors.Is(err, fs.ErrClosed):
		return "EBADF"
	default:
		return "EIO"
	}
}
