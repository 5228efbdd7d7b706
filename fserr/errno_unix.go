//go:build unix

package fserr

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

func errnoCode(err error) (string, bool) {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return "", false
	}
	if name := unix.ErrnoName(errno); name != "" {
		return name, true
	}
	return "", false
}
