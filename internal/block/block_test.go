package block

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestOptAddress(t *testing.T) {
	addr, ok := None.Get()
	assert.False(t, ok)
	assert.Equal(t, Address(0), addr)
	assert.Equal(t, "-", None.String())

	o := At(0x1000)
	addr, ok = o.Get()
	assert.True(t, ok)
	assert.Equal(t, Address(0x1000), addr)
	assert.Equal(t, "0x00001000", o.String())

	assert.True(t, None.Equal(OptAddress{}))
	assert.True(t, At(4).Equal(At(4)))
	assert.False(t, At(4).Equal(At(5)))
	assert.False(t, At(0).Equal(None))
}

func TestBasicBlockSize(t *testing.T) {
	b := BasicBlock{Start: 0x100, End: At(0x110)}
	assert.True(t, b.Resolved())
	assert.Equal(t, int64(0x10), b.Size())
	assert.True(t, b.Contains(0x108))
	assert.False(t, b.Contains(0x100))
	assert.False(t, b.Contains(0x110))

	stub := BasicBlock{Start: 0x100}
	assert.False(t, stub.Resolved())
	assert.Equal(t, int64(0), stub.Size())
	assert.False(t, stub.Contains(0x108))

	corrupted := BasicBlock{Start: 0x110, End: At(0x100)}
	assert.Equal(t, int64(-0x10), corrupted.Size())
}

func TestCompare(t *testing.T) {
	resolved := &BasicBlock{Start: 0x10, End: At(0x20)}
	stub := &BasicBlock{Start: 0x10, Kind: Jump, Reached: 1}
	later := &BasicBlock{Start: 0x11}

	assert.Equal(t, -1, Compare(resolved, stub))
	assert.Equal(t, 1, Compare(stub, resolved))
	assert.Equal(t, -1, Compare(stub, later))
	assert.Equal(t, 0, Compare(resolved, &BasicBlock{Start: 0x10, End: At(0x20)}))

	shorter := &BasicBlock{Start: 0x10, End: At(0x18)}
	assert.Equal(t, -1, Compare(shorter, resolved))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "end", End.String())
	assert.Equal(t, "call", Call.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestArenaIndex(t *testing.T) {
	a := NewArena(2)
	id0 := a.Add(BasicBlock{Start: 0x10})
	id1 := a.Add(BasicBlock{Start: 0x20})
	assert.Equal(t, 2, a.Len())
	ids := a.IDs()
	assert.Len(t, ids, 2)
	assert.Equal(t, id0, ids[0])
	assert.Equal(t, id1, ids[1])

	a.Get(id1).Score = -10
	assert.Equal(t, -10, a.Get(id1).Score)

	idx := Index{0x10: id0}
	id, ok := idx.Lookup(At(0x10))
	assert.True(t, ok)
	assert.Equal(t, id0, id)
	_, ok = idx.Lookup(At(0x20))
	assert.False(t, ok)
	_, ok = idx.Lookup(None)
	assert.False(t, ok)
}
