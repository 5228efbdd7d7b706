package fserr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateNotExist(t *testing.T) {
	raw := &os.PathError{Op: "open", Path: "/nope", Err: syscall.ENOENT}

	err := Translate("readFile", "/nope", raw)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEntry))
	assert.False(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "cause must stay reachable")
	assert.Equal(t, KindNoEntry, KindOf(err))
	assert.Equal(t, "readFile /nope: open /nope: no such file or directory", err.Error())
}

func TestTranslateOtherFailure(t *testing.T) {
	raw := &os.PathError{Op: "open", Path: "/secret", Err: syscall.EACCES}

	err := Translate("readFile", "/secret", raw)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindIO, fe.Kind)
	assert.Equal(t, "EACCES", fe.Code)
	assert.Equal(t, "EACCES open /secret: permission denied", fe.Msg)
	assert.True(t, errors.Is(err, syscall.EACCES))
}

func TestTranslateKeepsTaxonomyErrors(t *testing.T) {
	orig := NotImplemented("mkDir")
	assert.Same(t, orig, Translate("mkDir", "/x", orig))
	assert.NoError(t, Translate("mkDir", "/x", nil))
}

func TestPlatformCodeFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"errno", syscall.ENOTEMPTY, "ENOTEMPTY"},
		{"wrapped errno", fmt.Errorf("rmdir: %w", syscall.ENOTDIR), "ENOTDIR"},
		{"not exist sentinel", os.ErrNotExist, "ENOENT"},
		{"exist sentinel", os.ErrExist, "EEXIST"},
		{"permission sentinel", os.ErrPermission, "EACCES"},
		{"closed sentinel", os.ErrClosed, "EBADF"},
		{"plain error", errors.New("boom"), "EIO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlatformCode(tt.err))
		})
	}
}

func TestSentinelsMatchByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Capability("readFile", "callback", "s3"))

	assert.True(t, errors.Is(err, ErrCapability))
	assert.False(t, errors.Is(err, ErrInvocation))
	assert.Equal(t, KindCapability, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindNotImplemented; k <= KindInvocation; k++ {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("ENOENT")
	assert.False(t, ok)
}

func TestFormatIncludesStack(t *testing.T) {
	err := IO("writeFile", "/x", syscall.ENOSPC)

	plain := fmt.Sprintf("%v", err)
	verbose := fmt.Sprintf("%+v", err)

	assert.Equal(t, "writeFile /x: ENOSPC no space left on device", plain)
	assert.Contains(t, verbose, plain)
	assert.Contains(t, verbose, "fserr.IOCode")
}

func TestInvocationMessage(t *testing.T) {
	err := Invocation("readBytes", "missing required input %q", "bytes")
	assert.Equal(t, `readBytes: missing required input "bytes"`, err.Error())
}
