package stitcher

import (
	"context"
	"testing"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newArena(blocks ...block.BasicBlock) *block.Arena {
	arena := block.NewArena(len(blocks))
	for _, b := range blocks {
		arena.Add(b)
	}
	return arena
}

func resolved(start, end block.Address, kind block.Kind) block.BasicBlock {
	return block.BasicBlock{Start: start, End: block.At(end), Kind: kind}
}

func stub(start block.Address, kind block.Kind) block.BasicBlock {
	b := block.BasicBlock{Start: start, Kind: kind, Reached: 1}
	if kind == block.Call {
		b.Called = 1
	}
	return b
}

func stitch(t *testing.T, arena *block.Arena) *Result {
	t.Helper()
	return Stitch(context.Background(), log.NewTestLogger(t), arena)
}

func TestStitchConditionalJump(t *testing.T) {
	head := resolved(0x1000, 0x1004, block.Normal)
	head.Jump = block.At(0x1006)
	head.Fail = block.At(0x1004)

	arena := newArena(
		stub(0x1006, block.Jump),
		stub(0x1004, block.Fail),
		head,
		resolved(0x1004, 0x1006, block.End),
		resolved(0x1006, 0x1007, block.End),
	)

	result := stitch(t, arena)
	blocks := result.Blocks(arena)
	assert.Len(t, blocks, 3)
	assert.Len(t, result.Index, 3)
	assert.Empty(t, result.Rejected)

	assert.Equal(t, block.Address(0x1000), blocks[0].Start)
	assert.Equal(t, 0, blocks[0].Reached)

	assert.Equal(t, block.Address(0x1004), blocks[1].Start)
	assert.True(t, blocks[1].Resolved())
	assert.Equal(t, 1, blocks[1].Reached)

	assert.Equal(t, block.Address(0x1006), blocks[2].Start)
	assert.True(t, blocks[2].Resolved())
	assert.Equal(t, 1, blocks[2].Reached)
}

func TestStitchSplit(t *testing.T) {
	big := resolved(0x10, 0x30, block.End)
	big.Score = 7
	big.Jump = block.At(0x40)
	loop := resolved(0x30, 0x32, block.End)
	loop.Jump = block.At(0x20)

	arena := newArena(big, loop, stub(0x20, block.Jump), stub(0x40, block.Jump))
	result := stitch(t, arena)
	blocks := result.Blocks(arena)
	assert.Len(t, blocks, 4)

	head := blocks[0]
	assert.Equal(t, block.Address(0x10), head.Start)
	assert.True(t, block.At(0x20).Equal(head.End))
	assert.True(t, block.At(0x20).Equal(head.Jump))
	assert.False(t, head.Fail.IsSet())
	assert.Equal(t, block.End, head.Kind)
	assert.Equal(t, 7, head.Score)

	tail := blocks[1]
	assert.Equal(t, block.Address(0x20), tail.Start)
	assert.True(t, block.At(0x30).Equal(tail.End))
	assert.True(t, block.At(0x40).Equal(tail.Jump))
	assert.Equal(t, block.End, tail.Kind)
	assert.Equal(t, 2, tail.Reached)

	assert.Equal(t, block.Address(0x30), blocks[2].Start)

	marker := blocks[3]
	assert.Equal(t, block.Address(0x40), marker.Start)
	assert.False(t, marker.Resolved())
	_, ok := result.Index[0x40]
	assert.True(t, ok)
}

func TestStitchSplitByCall(t *testing.T) {
	arena := newArena(resolved(0x10, 0x30, block.End), stub(0x18, block.Call))
	result := stitch(t, arena)
	blocks := result.Blocks(arena)
	assert.Len(t, blocks, 2)

	callee := blocks[1]
	assert.Equal(t, block.Address(0x18), callee.Start)
	assert.Equal(t, 1, callee.Called)
	assert.Equal(t, 2, callee.Reached)
	assert.Equal(t, block.End, callee.Kind)
}

func TestStitchAbsorbStubs(t *testing.T) {
	arena := newArena(
		stub(0x10, block.Call),
		stub(0x10, block.Jump),
		resolved(0x10, 0x20, block.End),
		stub(0x10, block.Fail),
	)

	result := stitch(t, arena)
	blocks := result.Blocks(arena)
	assert.Len(t, blocks, 1)

	b := blocks[0]
	assert.True(t, block.At(0x20).Equal(b.End))
	assert.Equal(t, block.End, b.Kind)
	assert.Equal(t, 1, b.Called)
	assert.Equal(t, 2, b.Reached)
}

func TestStitchDuplicate(t *testing.T) {
	arena := newArena(resolved(0x10, 0x20, block.End), resolved(0x10, 0x20, block.End))
	result := stitch(t, arena)
	assert.Len(t, result.Resolved, 1)
	assert.Empty(t, result.Rejected)
}

func TestStitchAsymmetricOverlap(t *testing.T) {
	tests := []struct {
		name   string
		blocks []block.BasicBlock
		kept   block.Address
	}{
		{
			name:   "partial overlap",
			blocks: []block.BasicBlock{resolved(0x18, 0x28, block.End), resolved(0x10, 0x20, block.End)},
			kept:   0x10,
		},
		{
			name:   "nested with different end",
			blocks: []block.BasicBlock{resolved(0x10, 0x30, block.End), resolved(0x18, 0x20, block.End)},
			kept:   0x10,
		},
		{
			name:   "same start with different end",
			blocks: []block.BasicBlock{resolved(0x10, 0x30, block.End), resolved(0x10, 0x20, block.End)},
			kept:   0x10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena := newArena(tt.blocks...)
			result := stitch(t, arena)
			assert.Len(t, result.Rejected, 1)
			assert.Len(t, result.Resolved, 1)
			assert.Equal(t, tt.kept, arena.Get(result.Resolved[0]).Start)
		})
	}
}

func TestStitchOrderIndependence(t *testing.T) {
	long := resolved(0x10, 0x30, block.End)
	long.Score = 3
	short := resolved(0x10, 0x20, block.Normal)
	short.Jump = block.At(0x20)
	input := []block.BasicBlock{
		long,
		short,
		stub(0x10, block.Jump),
		stub(0x20, block.Fail),
		stub(0x10, block.Call),
		resolved(0x20, 0x30, block.End),
	}

	referenceArena := newArena(input...)
	want := stitch(t, referenceArena).Blocks(referenceArena)

	orders := [][]int{
		{5, 4, 3, 2, 1, 0},
		{1, 0, 3, 2, 5, 4},
		{2, 5, 0, 4, 1, 3},
	}
	for _, order := range orders {
		permuted := make([]block.BasicBlock, 0, len(input))
		for _, i := range order {
			permuted = append(permuted, input[i])
		}

		arena := newArena(permuted...)
		got := stitch(t, arena).Blocks(arena)
		assert.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, 0, block.Compare(&want[i], &got[i]), got[i].String())
		}
	}
}

func TestStitchIdempotent(t *testing.T) {
	head := resolved(0x1000, 0x1010, block.Normal)
	head.Jump = block.At(0x1008)
	head.Fail = block.At(0x1010)

	arena := newArena(
		head,
		stub(0x1008, block.Jump),
		stub(0x1010, block.Fail),
		resolved(0x1010, 0x1012, block.End),
		stub(0x9000, block.Call),
	)
	first := stitch(t, arena).Blocks(arena)

	again := newArena(first...)
	second := stitch(t, again)
	assert.Empty(t, second.Rejected)

	got := second.Blocks(again)
	assert.Len(t, got, len(first))
	for i := range first {
		assert.Equal(t, 0, block.Compare(&first[i], &got[i]), got[i].String())
	}
}

func TestStitchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	arena := newArena(resolved(0x10, 0x20, block.End), resolved(0x20, 0x30, block.End))
	result := Stitch(ctx, log.NewTestLogger(t), arena)
	assert.Empty(t, result.Resolved)
}

func TestStitchEmpty(t *testing.T) {
	result := stitch(t, block.NewArena(0))
	assert.Empty(t, result.Resolved)
	assert.Len(t, result.Index, 0)
}
