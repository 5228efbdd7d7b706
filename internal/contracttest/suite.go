// Package contracttest provides a conformance suite that every dualfs
// backend runs. The suite drives the backend through core.Dispatcher by
// operation name, once per calling convention, so blocking and callback
// implementations are held to the same contract.
//
// Example usage:
//
//	func TestContract(t *testing.T) {
//	    contracttest.Run(t, func(t *testing.T) (backends.Backend, string) {
//	        return myprovider.New(), "/"
//	    }, contracttest.Config{})
//	}
package contracttest

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/fserr"
)

// Factory returns a fresh backend and an existing, empty directory below
// which the test may create entries. The suite closes the backend.
type Factory func(t *testing.T) (backends.Backend, string)

// Config adapts the suite to backend characteristics
type Config struct {
	// MtimeSlack widens the window getMtime results are checked against,
	// for stores with coarse timestamps
	MtimeSlack time.Duration

	// SkipTests lists subtests to skip, e.g. "blocking/ReadFileOnDirectory"
	SkipTests []string
}

// callbackTimeout bounds how long the suite waits for a continuation
const callbackTimeout = 10 * time.Second

// Run executes the suite in every mode. In a mode the backend does not
// implement, every operation must fail with a Capability error.
func Run(t *testing.T, newBackend Factory, cfg Config) {
	for _, mode := range []backends.Mode{backends.ModeBlocking, backends.ModeCallback} {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			probe, _ := newBackend(t)
			supported := backends.Supports(probe, backends.OpReadFile, mode)
			_ = probe.Close()

			if !supported {
				testCapabilityGap(t, newBackend, mode)
				return
			}
			for _, tc := range cases {
				tc := tc
				t.Run(tc.name, func(t *testing.T) {
					if cfg.skip(mode.String() + "/" + tc.name) {
						t.Skip("Skipped by backend configuration")
						return
					}
					tc.fn(t, newHarness(t, newBackend, mode), cfg)
				})
			}
		})
	}
}

func (c Config) skip(name string) bool {
	for _, s := range c.SkipTests {
		if s == name {
			return true
		}
	}
	return false
}

// Harness calls operations by name in one mode and waits for callbacks
type Harness struct {
	t    *testing.T
	d    *core.Dispatcher
	mode backends.Mode
	root string
}

func newHarness(t *testing.T, newBackend Factory, mode backends.Mode) *Harness {
	t.Helper()
	b, root := newBackend(t)
	t.Cleanup(func() { _ = b.Close() })
	return &Harness{t: t, d: core.NewDispatcher(b, nil), mode: mode, root: root}
}

// Path joins name onto the test directory
func (h *Harness) Path(name ...string) string {
	return path.Join(append([]string{h.root}, name...)...)
}

// Call invokes op with args in the harness mode. In callback mode it waits
// for the continuation and fails the test if none arrives.
func (h *Harness) Call(op string, args core.Args) (any, error) {
	h.t.Helper()
	ctx := context.Background()
	if h.mode == backends.ModeBlocking {
		return h.d.Call(ctx, core.Invocation{Op: op, Args: args})
	}

	type outcome struct {
		v   any
		err error
	}
	ch := make(chan outcome, 2)
	_, err := h.d.Call(ctx, core.Invocation{Op: op, Args: args, Callback: func(v any, err error) {
		ch <- outcome{v, err}
	}})
	if err != nil {
		return nil, err
	}
	select {
	case o := <-ch:
		return o.v, o.err
	case <-time.After(callbackTimeout):
		h.t.Fatalf("%s: continuation was not invoked within %s", op, callbackTimeout)
		return nil, nil
	}
}

// Must is Call that fails the test on error
func (h *Harness) Must(op string, args core.Args) any {
	h.t.Helper()
	v, err := h.Call(op, args)
	require.NoError(h.t, err, "%s %v", op, args)
	return v
}

// Fails is Call that expects an error of kind and a nil result
func (h *Harness) Fails(kind fserr.Kind, op string, args core.Args) error {
	h.t.Helper()
	v, err := h.Call(op, args)
	require.Error(h.t, err, "%s %v", op, args)
	assert.Equal(h.t, kind, fserr.KindOf(err), "%s %v: %v", op, args, err)
	assert.Nil(h.t, v, "result must be empty when an error is reported")
	return err
}

// inMode returns a harness sharing the backend of h that calls in mode
func (h *Harness) inMode(mode backends.Mode) *Harness {
	return &Harness{t: h.t, d: h.d, mode: mode, root: h.root}
}

func (h *Harness) exists(p string) bool {
	h.t.Helper()
	return h.Must("pathExists", core.Args{"path": p}).(bool)
}

func testCapabilityGap(t *testing.T, newBackend Factory, mode backends.Mode) {
	h := newHarness(t, newBackend, mode)
	p := h.Path("gap.txt")
	args := core.Args{"path": p, "data": "x", "filename": p, "bytes": 1}
	for _, desc := range backends.Operations() {
		invoked := false
		inv := core.Invocation{Op: desc.Name, Args: args}
		if mode == backends.ModeCallback {
			inv.Callback = func(any, error) { invoked = true }
		}
		_, err := h.d.Call(context.Background(), inv)
		require.Error(t, err, desc.Name)
		assert.True(t, fserr.KindOf(err) == fserr.KindCapability, "%s: %v", desc.Name, err)
		assert.False(t, invoked, "%s: continuation invoked for a rejected call", desc.Name)
	}
}

var cases = []struct {
	name string
	fn   func(t *testing.T, h *Harness, cfg Config)
}{
	{"Scenario", testScenario},
	{"WriteThenRead", testWriteThenRead},
	{"OverwriteReplaces", testOverwriteReplaces},
	{"WriteMissingParent", testWriteMissingParent},
	{"ReadMissing", testReadMissing},
	{"ReadFileOnDirectory", testReadFileOnDirectory},
	{"ReadBytesPrefix", testReadBytesPrefix},
	{"ReadBytesEmptyFile", testReadBytesEmptyFile},
	{"ReadBytesMissing", testReadBytesMissing},
	{"ReadBytesHugeCount", testReadBytesHugeCount},
	{"ReadBytesOnDirectory", testReadBytesOnDirectory},
	{"NoEntryMatchesAcrossModes", testNoEntryMatchesAcrossModes},
	{"PathExistsMissing", testPathExistsMissing},
	{"GetMtime", testGetMtime},
	{"GetMtimeMissing", testGetMtimeMissing},
	{"MkDirIdempotent", testMkDirIdempotent},
	{"MkDirMissingParent", testMkDirMissingParent},
	{"RmDirIdempotent", testRmDirIdempotent},
	{"RmDirNonEmpty", testRmDirNonEmpty},
	{"RmDirOnFile", testRmDirOnFile},
	{"UnlinkRemoves", testUnlinkRemoves},
	{"UnlinkDirectory", testUnlinkDirectory},
	{"InvocationErrors", testInvocationErrors},
}

func testScenario(t *testing.T, h *Harness, _ Config) {
	file := h.Path("a.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "hello"})
	assert.Equal(t, "hello", h.Must("readFile", core.Args{"path": file}))

	h.Fails(fserr.KindNoEntry, "writeFile", core.Args{"path": h.Path("missing", "x.txt"), "data": "x"})

	dir := h.Path("d")
	h.Must("mkDir", core.Args{"path": dir})
	h.Must("mkDir", core.Args{"path": dir})
	h.Must("rmDir", core.Args{"path": dir})
	h.Must("rmDir", core.Args{"path": dir})
	assert.False(t, h.exists(dir))

	assert.Equal(t, []byte("hel"), h.Must("readBytes", core.Args{"path": file, "bytes": 3}))
}

func testWriteThenRead(t *testing.T, h *Harness, _ Config) {
	file := h.Path("notes.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "line one\nline two\n"})
	assert.True(t, h.exists(file))
	assert.Equal(t, "line one\nline two\n", h.Must("readFile", core.Args{"path": file}))
}

func testOverwriteReplaces(t *testing.T, h *Harness, _ Config) {
	file := h.Path("f.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "a much longer first version"})
	h.Must("writeFile", core.Args{"path": file, "data": "short"})
	assert.Equal(t, "short", h.Must("readFile", core.Args{"path": file}))
}

func testWriteMissingParent(t *testing.T, h *Harness, _ Config) {
	file := h.Path("nope", "f.txt")
	h.Fails(fserr.KindNoEntry, "writeFile", core.Args{"path": file, "data": "x"})
	assert.False(t, h.exists(h.Path("nope")))
}

func testReadMissing(t *testing.T, h *Harness, _ Config) {
	err := h.Fails(fserr.KindNoEntry, "readFile", core.Args{"path": h.Path("absent.txt")})
	assert.ErrorIs(t, err, fserr.ErrNoEntry)
}

func testReadFileOnDirectory(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("dir")
	h.Must("mkDir", core.Args{"path": dir})
	h.Fails(fserr.KindIO, "readFile", core.Args{"path": dir})
}

func testReadBytesPrefix(t *testing.T, h *Harness, _ Config) {
	file := h.Path("bytes.bin")
	h.Must("writeFile", core.Args{"path": file, "data": "hello"})

	assert.Equal(t, []byte("hel"), h.Must("readBytes", core.Args{"path": file, "bytes": 3}))
	assert.Equal(t, []byte("hello"), h.Must("readBytes", core.Args{"path": file, "bytes": 5}))
	// short files are not padded
	assert.Equal(t, []byte("hello"), h.Must("readBytes", core.Args{"path": file, "bytes": 64}))
	assert.Empty(t, h.Must("readBytes", core.Args{"path": file, "bytes": 0}))
}

func testReadBytesEmptyFile(t *testing.T, h *Harness, _ Config) {
	file := h.Path("empty")
	h.Must("writeFile", core.Args{"path": file, "data": ""})
	assert.Empty(t, h.Must("readBytes", core.Args{"path": file, "bytes": 4}))
	assert.Equal(t, "", h.Must("readFile", core.Args{"path": file}))
}

func testReadBytesMissing(t *testing.T, h *Harness, _ Config) {
	h.Fails(fserr.KindNoEntry, "readBytes", core.Args{"path": h.Path("absent"), "bytes": 3})
}

func testReadBytesHugeCount(t *testing.T, h *Harness, _ Config) {
	file := h.Path("small.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "hello"})
	assert.Equal(t, []byte("hello"), h.Must("readBytes", core.Args{"path": file, "bytes": int64(1) << 50}))
}

func testReadBytesOnDirectory(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("dir")
	h.Must("mkDir", core.Args{"path": dir})
	h.Fails(fserr.KindIO, "readBytes", core.Args{"path": dir, "bytes": 4})
}

func testNoEntryMatchesAcrossModes(t *testing.T, h *Harness, _ Config) {
	for _, mode := range []backends.Mode{backends.ModeBlocking, backends.ModeCallback} {
		if !h.d.Supports(backends.OpReadFile, mode) {
			t.Skipf("backend does not implement %s mode", mode)
		}
	}

	file := h.Path("absent.txt")
	args := map[string]core.Args{
		"readFile":  {"path": file},
		"unlink":    {"filename": file},
		"getMtime":  {"path": file},
		"readBytes": {"path": file, "bytes": 3},
	}
	for op, a := range args {
		blocking := h.inMode(backends.ModeBlocking).Fails(fserr.KindNoEntry, op, a)
		callback := h.inMode(backends.ModeCallback).Fails(fserr.KindNoEntry, op, a)
		assert.Equal(t, blocking.Error(), callback.Error(), op)
	}
}

func testPathExistsMissing(t *testing.T, h *Harness, _ Config) {
	v, err := h.Call("pathExists", core.Args{"path": h.Path("absent", "deeper")})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func testGetMtime(t *testing.T, h *Harness, cfg Config) {
	slack := time.Second + cfg.MtimeSlack
	file := h.Path("stamped.txt")
	before := time.Now()
	h.Must("writeFile", core.Args{"path": file, "data": "x"})
	after := time.Now()

	mtime, ok := h.Must("getMtime", core.Args{"path": file}).(time.Time)
	require.True(t, ok, "getMtime must produce a time.Time")
	assert.False(t, mtime.Before(before.Add(-slack)), "mtime %s before write at %s", mtime, before)
	assert.False(t, mtime.After(after.Add(slack)), "mtime %s after write at %s", mtime, after)

	dir := h.Path("dir")
	h.Must("mkDir", core.Args{"path": dir})
	_, ok = h.Must("getMtime", core.Args{"path": dir}).(time.Time)
	assert.True(t, ok)
}

func testGetMtimeMissing(t *testing.T, h *Harness, _ Config) {
	h.Fails(fserr.KindNoEntry, "getMtime", core.Args{"path": h.Path("absent")})
}

func testMkDirIdempotent(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("logs")
	h.Must("mkDir", core.Args{"path": dir})
	h.Must("mkDir", core.Args{"path": dir})
	assert.True(t, h.exists(dir))

	h.Must("writeFile", core.Args{"path": path.Join(dir, "today.log"), "data": "ok"})
	assert.Equal(t, "ok", h.Must("readFile", core.Args{"path": path.Join(dir, "today.log")}))
}

func testMkDirMissingParent(t *testing.T, h *Harness, _ Config) {
	h.Fails(fserr.KindIO, "mkDir", core.Args{"path": h.Path("a", "b")})
	assert.False(t, h.exists(h.Path("a")))
}

func testRmDirIdempotent(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("tmp")
	h.Must("mkDir", core.Args{"path": dir})
	h.Must("rmDir", core.Args{"path": dir})
	assert.False(t, h.exists(dir))
	h.Must("rmDir", core.Args{"path": dir})
	h.Must("rmDir", core.Args{"path": h.Path("never", "existed")})
}

func testRmDirNonEmpty(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("full")
	h.Must("mkDir", core.Args{"path": dir})
	h.Must("writeFile", core.Args{"path": path.Join(dir, "f"), "data": "x"})

	h.Fails(fserr.KindIO, "rmDir", core.Args{"path": dir})
	assert.True(t, h.exists(dir))
	assert.True(t, h.exists(path.Join(dir, "f")))
}

func testRmDirOnFile(t *testing.T, h *Harness, _ Config) {
	file := h.Path("plain.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "x"})
	h.Fails(fserr.KindIO, "rmDir", core.Args{"path": file})
	assert.True(t, h.exists(file))
}

func testUnlinkRemoves(t *testing.T, h *Harness, _ Config) {
	file := h.Path("gone.txt")
	h.Must("writeFile", core.Args{"path": file, "data": "x"})
	h.Must("unlink", core.Args{"filename": file})
	assert.False(t, h.exists(file))
	h.Fails(fserr.KindNoEntry, "unlink", core.Args{"filename": file})
}

func testUnlinkDirectory(t *testing.T, h *Harness, _ Config) {
	dir := h.Path("keep")
	h.Must("mkDir", core.Args{"path": dir})
	h.Fails(fserr.KindIO, "unlink", core.Args{"filename": dir})
	assert.True(t, h.exists(dir))
}

func testInvocationErrors(t *testing.T, h *Harness, _ Config) {
	file := h.Path("never.txt")

	err := h.Fails(fserr.KindInvocation, "writeFile", core.Args{"path": file})
	assert.Contains(t, err.Error(), `"data"`)
	h.Fails(fserr.KindInvocation, "readBytes", core.Args{"path": file})
	h.Fails(fserr.KindInvocation, "readBytes", core.Args{"path": file, "bytes": -1})
	h.Fails(fserr.KindInvocation, "unlink", core.Args{"path": file})
	h.Fails(fserr.KindInvocation, "chmod", core.Args{"path": file})

	// rejected before any I/O
	assert.False(t, h.exists(file))
}
