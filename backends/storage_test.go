package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationTable(t *testing.T) {
	want := map[string][]string{
		"readFile":   {"path"},
		"writeFile":  {"path", "data"},
		"unlink":     {"filename"},
		"readBytes":  {"path", "bytes"},
		"pathExists": {"path"},
		"getMtime":   {"path"},
		"mkDir":      {"path"},
		"rmDir":      {"path"},
	}

	ops := Operations()
	require.Len(t, ops, len(want))
	for i, op := range ops {
		assert.Equal(t, Op(i), op.Op)
		assert.Equal(t, want[op.Name], op.Inputs, op.Name)
		assert.Equal(t, op.Name, op.Op.String())
	}
}

func TestInputListsCannotBeMutated(t *testing.T) {
	inputs := OpWriteFile.Inputs()
	inputs[0] = "mutated"

	ops := Operations()
	ops[OpWriteFile].Inputs[1] = "mutated"

	assert.Equal(t, []string{"path", "data"}, OpWriteFile.Inputs())
}

func TestLookup(t *testing.T) {
	op, ok := Lookup("readBytes")
	require.True(t, ok)
	assert.Equal(t, OpReadBytes, op.Op)

	_, ok = Lookup("chmod")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Op(42).String())
}

type blockingOnly struct{ Blocking }

func (blockingOnly) Name() string { return "blocking-only" }
func (blockingOnly) Close() error { return nil }

type partial struct{ blockingOnly }

func (partial) Supports(op Op, mode Mode) bool { return op != OpGetMtime }

func TestSupports(t *testing.T) {
	assert.True(t, Supports(blockingOnly{}, OpReadFile, ModeBlocking))
	assert.False(t, Supports(blockingOnly{}, OpReadFile, ModeCallback))

	assert.True(t, Supports(partial{}, OpReadFile, ModeBlocking))
	assert.False(t, Supports(partial{}, OpGetMtime, ModeBlocking))
	assert.False(t, Supports(partial{}, OpReadFile, Mode(7)))
}
