// Package extractor groups stitched blocks into functions by following jump
// and fail edges from every entry candidate.
package extractor

import (
	"context"
	"fmt"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/log"
)

// EmitFunc receives every accepted function. Returning an error aborts the
// extraction.
type EmitFunc func(fn *Function) error

// Result summarizes an extraction run.
type Result struct {
	Emitted   int
	Discarded int
	Cancelled bool
}

type extractor struct {
	logger  *log.Logger
	arena   *block.Arena
	index   block.Index
	visited map[block.ID]struct{}
	stack   []block.ID
}

// Extract walks the resolved blocks in order and starts a function at every
// unvisited entry candidate: a block that no other block reaches, or one that
// is called. Functions without a terminating block are discarded.
// The visited set is shared by all functions of the run so that no block is
// assigned twice.
func Extract(ctx context.Context, logger *log.Logger, arena *block.Arena,
	resolved []block.ID, index block.Index, emit EmitFunc) (*Result, error) {
	e := &extractor{
		logger:  logger,
		arena:   arena,
		index:   index,
		visited: make(map[block.ID]struct{}, len(resolved)),
	}
	result := &Result{}

	for _, id := range resolved {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, nil
		}
		if !e.isEntry(id) {
			continue
		}

		fn, ok := e.traverse(ctx, id)
		if !ok {
			result.Cancelled = true
			return result, nil
		}

		if !fn.Valid() {
			result.Discarded++
			continue
		}
		if err := emit(fn); err != nil {
			return result, fmt.Errorf("emitting function at 0x%x: %w", uint64(fn.Addr), err)
		}
		result.Emitted++
	}

	return result, nil
}

func (e *extractor) isEntry(id block.ID) bool {
	if _, ok := e.visited[id]; ok {
		return false
	}
	b := e.arena.Get(id)
	return b.Resolved() && (b.Reached == 0 || b.Called >= 1)
}

// traverse collects all blocks reachable from the entry block. It returns
// false if the context was cancelled during the traversal.
func (e *extractor) traverse(ctx context.Context, entry block.ID) (*Function, bool) {
	fn := newFunction(e.arena.Get(entry).Start)
	e.stack = append(e.stack[:0], entry)

	for len(e.stack) > 0 {
		if ctx.Err() != nil {
			return nil, false
		}

		id := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		if _, ok := e.visited[id]; ok {
			continue
		}
		e.visited[id] = struct{}{}

		b := e.arena.Get(id)
		if !b.Resolved() || b.Score < 0 || b.Size() < 0 {
			continue
		}
		fn.add(b)

		e.push(b.Jump)
		e.push(b.Fail)
	}

	return fn, true
}

// push schedules the block at the edge target unless it was visited.
func (e *extractor) push(target block.OptAddress) {
	addr, ok := target.Get()
	if !ok {
		return
	}

	id, ok := e.index[addr]
	if !ok {
		e.logger.Debug("Edge target without block", log.Hex("address", uint64(addr)))
		return
	}
	if _, ok := e.visited[id]; ok {
		return
	}
	e.stack = append(e.stack, id)
}
