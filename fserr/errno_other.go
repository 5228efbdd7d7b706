//go:build !unix

package fserr

import (
	"errors"
	"fmt"
	"syscall"
)

func errnoCode(err error) (string, bool) {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return "", false
	}
	return fmt.Sprintf("ERRNO%d", uint(errno)), true
}
