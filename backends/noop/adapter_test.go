package noop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ebogdum/dualfs/fserr"
)

func TestBlockingAlwaysNotImplemented(t *testing.T) {
	n := NewNoopAdapter()
	ctx := context.Background()

	_, err := n.ReadFile(ctx, "/a")
	assert.True(t, errors.Is(err, fserr.ErrNotImplemented))
	assert.Equal(t, "readFile: not implemented", err.Error())

	assert.True(t, errors.Is(n.WriteFile(ctx, "/a", "x"), fserr.ErrNotImplemented))
	assert.True(t, errors.Is(n.Unlink(ctx, "/a"), fserr.ErrNotImplemented))
	_, err = n.ReadBytes(ctx, "/a", 1)
	assert.True(t, errors.Is(err, fserr.ErrNotImplemented))
	_, err = n.PathExists(ctx, "/a")
	assert.True(t, errors.Is(err, fserr.ErrNotImplemented))
	_, err = n.GetMtime(ctx, "/a")
	assert.True(t, errors.Is(err, fserr.ErrNotImplemented))
	assert.True(t, errors.Is(n.MkDir(ctx, "/a"), fserr.ErrNotImplemented))
	assert.True(t, errors.Is(n.RmDir(ctx, "/a"), fserr.ErrNotImplemented))
}

func TestCallbackAlwaysNotImplemented(t *testing.T) {
	n := NewNoopAdapter()
	ctx := context.Background()
	var errs []error
	collect := func(err error) { errs = append(errs, err) }

	n.ReadFileAsync(ctx, "/a", func(_ string, err error) { collect(err) })
	n.WriteFileAsync(ctx, "/a", "x", collect)
	n.UnlinkAsync(ctx, "/a", collect)
	n.ReadBytesAsync(ctx, "/a", 1, func(_ []byte, err error) { collect(err) })
	n.PathExistsAsync(ctx, "/a", func(_ bool, err error) { collect(err) })
	n.GetMtimeAsync(ctx, "/a", func(_ time.Time, err error) { collect(err) })
	n.MkDirAsync(ctx, "/a", collect)
	n.RmDirAsync(ctx, "/a", collect)

	assert.Len(t, errs, 8)
	for _, err := range errs {
		assert.Equal(t, fserr.KindNotImplemented, fserr.KindOf(err))
	}
}
