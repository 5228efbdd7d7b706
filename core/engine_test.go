package core

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/dualfs/backends/noop"
	"github.com/ebogdum/dualfs/fserr"
	"github.com/ebogdum/dualfs/metrics"
)

// stubBackend is a blocking-only backend with canned results
type stubBackend struct {
	name string

	mu    sync.Mutex
	calls []string

	data   string
	bytes  []byte
	exists bool
	mtime  time.Time
	err    error
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Close() error { return nil }

func (s *stubBackend) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubBackend) ReadFile(_ context.Context, path string) (string, error) {
	s.record("readFile " + path)
	return s.data, s.err
}

func (s *stubBackend) WriteFile(_ context.Context, path, data string) error {
	s.record("writeFile " + path + " " + data)
	return s.err
}

func (s *stubBackend) Unlink(_ context.Context, filename string) error {
	s.record("unlink " + filename)
	return s.err
}

func (s *stubBackend) ReadBytes(_ context.Context, path string, n int) ([]byte, error) {
	s.record("readBytes " + path)
	if n < len(s.bytes) {
		return s.bytes[:n], s.err
	}
	return s.bytes, s.err
}

func (s *stubBackend) PathExists(_ context.Context, path string) (bool, error) {
	s.record("pathExists " + path)
	return s.exists, s.err
}

func (s *stubBackend) GetMtime(_ context.Context, path string) (time.Time, error) {
	s.record("getMtime " + path)
	return s.mtime, s.err
}

func (s *stubBackend) MkDir(_ context.Context, path string) error {
	s.record("mkDir " + path)
	return s.err
}

func (s *stubBackend) RmDir(_ context.Context, path string) error {
	s.record("rmDir " + path)
	return s.err
}

// misbehaving implements both modes; its callback branch breaks the
// continuation contract
type misbehaving struct {
	*noop.NoopAdapter
	name string
}

func (m *misbehaving) Name() string { return m.name }

// ReadFileAsync delivers twice, the first time with a result next to an error
func (m *misbehaving) ReadFileAsync(_ context.Context, path string, done func(string, error)) {
	done("partial", fserr.IO("readFile", path, errors.New("short read")))
	done("late", nil)
}

// GetMtimeAsync completes on another goroutine with an untranslated error
func (m *misbehaving) GetMtimeAsync(_ context.Context, path string, done func(time.Time, error)) {
	go done(time.Now(), &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist})
}

func TestMissingInputRejectedBeforeIO(t *testing.T) {
	b := &stubBackend{name: "stub-missing-input"}
	d := NewDispatcher(b, nil)

	_, err := d.Call(context.Background(), Invocation{Op: "writeFile", Args: Args{"path": "/a"}})
	require.Error(t, err)
	assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err))
	assert.Equal(t, `writeFile: missing required input "data"`, err.Error())

	err = d.WriteFile(context.Background(), "", "x")
	assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err))

	_, err = d.ReadBytes(context.Background(), "/a", -1)
	assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err))

	assert.Empty(t, b.calls)
	assert.Equal(t, float64(2), testutil.ToFloat64(
		metrics.OperationsTotal.WithLabelValues(b.name, "writeFile", "blocking", "Invocation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.OperationsTotal.WithLabelValues(b.name, "readBytes", "blocking", "Invocation")))
}

func TestCapabilityErrorForMissingBranch(t *testing.T) {
	b := &stubBackend{name: "stub-capability"}
	d := NewDispatcher(b, nil)

	invoked := false
	err := d.ReadFileAsync(context.Background(), "/a", func(string, error) { invoked = true })
	require.Error(t, err)
	assert.Equal(t, fserr.KindCapability, fserr.KindOf(err))
	assert.Equal(t, "readFile: backend stub-capability has no callback implementation", err.Error())

	_, err = d.Call(context.Background(), Invocation{
		Op:       "mkDir",
		Args:     Args{"path": "/a"},
		Callback: func(any, error) { invoked = true },
	})
	assert.ErrorIs(t, err, fserr.ErrCapability)

	assert.False(t, invoked)
	assert.Empty(t, b.calls)
}

func TestNilContinuationIsInvocationError(t *testing.T) {
	d := NewDispatcher(noop.NewNoopAdapter(), nil)
	err := d.MkDirAsync(context.Background(), "/a", nil)
	assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err))
}

func TestContinuationDeliveredOnceWithZeroResult(t *testing.T) {
	b := &misbehaving{NoopAdapter: noop.NewNoopAdapter(), name: "misbehaving-once"}
	d := NewDispatcher(b, nil)

	type delivery struct {
		data string
		err  error
	}
	var got []delivery
	err := d.ReadFileAsync(context.Background(), "/a", func(data string, err error) {
		got = append(got, delivery{data, err})
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].data)
	assert.Equal(t, fserr.KindIO, fserr.KindOf(got[0].err))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.ContinuationViolationsTotal.WithLabelValues(b.name, "readFile")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PendingCallbacks.WithLabelValues(b.name)))
}

func TestUntranslatedErrorsAreRetagged(t *testing.T) {
	ctx := context.Background()

	b := &stubBackend{name: "stub-retag", err: errors.New("disk on fire")}
	d := NewDispatcher(b, nil)
	err := d.MkDir(ctx, "/a")
	assert.Equal(t, fserr.KindIO, fserr.KindOf(err))
	assert.Contains(t, err.Error(), "disk on fire")

	b.err = &os.PathError{Op: "open", Path: "/a", Err: os.ErrNotExist}
	_, err = d.ReadFile(ctx, "/a")
	assert.Equal(t, fserr.KindNoEntry, fserr.KindOf(err))

	// callback branch, delivered from another goroutine
	m := &misbehaving{NoopAdapter: noop.NewNoopAdapter(), name: "misbehaving-retag"}
	md := NewDispatcher(m, nil)
	results := make(chan time.Time, 1)
	errs := make(chan error, 1)
	require.NoError(t, md.GetMtimeAsync(ctx, "/a", func(mtime time.Time, err error) {
		results <- mtime
		errs <- err
	}))
	select {
	case mtime := <-results:
		assert.True(t, mtime.IsZero())
		assert.Equal(t, fserr.KindNoEntry, fserr.KindOf(<-errs))
	case <-time.After(5 * time.Second):
		t.Fatal("continuation not invoked")
	}
}

func TestBlockingResultsAreDroppedOnError(t *testing.T) {
	b := &stubBackend{name: "stub-drop", data: "partial", bytes: []byte("abc"), err: fserr.NoEntry("readFile", "/a", os.ErrNotExist)}
	d := NewDispatcher(b, nil)

	data, err := d.ReadFile(context.Background(), "/a")
	assert.Error(t, err)
	assert.Empty(t, data)

	got, err := d.ReadBytes(context.Background(), "/a", 2)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestPathExistsNormalizesFailures(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{name: "stub-exists", exists: true, err: fserr.IO("pathExists", "/a", errors.New("timeout"))}
	d := NewDispatcher(b, nil)

	ok, err := d.PathExists(ctx, "/a")
	require.NoError(t, err)
	assert.False(t, ok)

	b.err = nil
	ok, err = d.PathExists(ctx, "/a")
	require.NoError(t, err)
	assert.True(t, ok)

	// NotImplemented is not a lookup failure
	nd := NewDispatcher(noop.NewNoopAdapter(), nil)
	_, err = nd.PathExists(ctx, "/a")
	assert.ErrorIs(t, err, fserr.ErrNotImplemented)

	var asyncErr error
	require.NoError(t, nd.PathExistsAsync(ctx, "/a", func(_ bool, err error) { asyncErr = err }))
	assert.ErrorIs(t, asyncErr, fserr.ErrNotImplemented)
}

func TestReferenceBackendThroughDispatcher(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(noop.NewNoopAdapter(), nil)
	args := Args{"path": "/a", "data": "x", "filename": "/a", "bytes": 1}

	for _, name := range []string{"readFile", "writeFile", "unlink", "readBytes", "pathExists", "getMtime", "mkDir", "rmDir"} {
		v, err := d.Call(ctx, Invocation{Op: name, Args: args})
		assert.Nil(t, v, name)
		assert.ErrorIs(t, err, fserr.ErrNotImplemented, name)

		var delivered error
		v, err = d.Call(ctx, Invocation{Op: name, Args: args, Callback: func(_ any, err error) { delivered = err }})
		assert.Nil(t, v, name)
		require.NoError(t, err, name)
		assert.ErrorIs(t, delivered, fserr.ErrNotImplemented, name)
	}
}

func TestCallReturnsTypedResults(t *testing.T) {
	ctx := context.Background()
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &stubBackend{name: "stub-typed", data: "hello", bytes: []byte("hello"), exists: true, mtime: mtime}
	d := NewDispatcher(b, nil)

	v, err := d.Call(ctx, Invocation{Op: "readFile", Args: Args{"path": "/a", "unused": 42}})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = d.Call(ctx, Invocation{Op: "readBytes", Args: Args{"path": "/a", "bytes": 3}})
	require.NoError(t, err)
	assert.Equal(t, []byte("hel"), v)

	v, err = d.Call(ctx, Invocation{Op: "pathExists", Args: Args{"path": "/a"}})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = d.Call(ctx, Invocation{Op: "getMtime", Args: Args{"path": "/a"}})
	require.NoError(t, err)
	assert.Equal(t, mtime, v)

	v, err = d.Call(ctx, Invocation{Op: "unlink", Args: Args{"filename": "/gone"}})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = d.Call(ctx, Invocation{Op: "writeFile", Args: Args{"path": "/a", "data": "x"}})
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Contains(t, b.calls, "unlink /gone")
	assert.Contains(t, b.calls, "writeFile /a x")
}

func TestCallArgumentTypes(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{name: "stub-args", bytes: []byte("hello")}
	d := NewDispatcher(b, nil)

	for _, n := range []any{3, int64(3), uint8(3), float64(3), "3"} {
		v, err := d.Call(ctx, Invocation{Op: "readBytes", Args: Args{"path": "/a", "bytes": n}})
		require.NoError(t, err, "%T", n)
		assert.Equal(t, []byte("hel"), v, "%T", n)
	}

	for _, args := range []Args{
		{"path": "/a", "bytes": 2.5},
		{"path": "/a", "bytes": "three"},
		{"path": 7, "bytes": 3},
		{"path": "/a", "bytes": nil},
	} {
		_, err := d.Call(ctx, Invocation{Op: "readBytes", Args: args})
		assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err), "%v", args)
	}

	_, err := d.Call(ctx, Invocation{Op: "chmod", Args: Args{"path": "/a"}})
	assert.Equal(t, fserr.KindInvocation, fserr.KindOf(err))
	assert.Contains(t, err.Error(), `"chmod"`)
}

func TestSuccessfulOperationsAreCounted(t *testing.T) {
	b := &stubBackend{name: "stub-metrics"}
	d := NewDispatcher(b, nil)
	require.NoError(t, d.MkDir(context.Background(), "/a"))
	require.NoError(t, d.MkDir(context.Background(), "/b"))

	assert.Equal(t, float64(2), testutil.ToFloat64(
		metrics.OperationsTotal.WithLabelValues(b.name, "mkDir", "blocking", metrics.OutcomeOK)))
}
