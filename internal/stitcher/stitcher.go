// Package stitcher reconciles the raw, unordered blocks of a scan into a set
// of non-overlapping blocks with resolved successor edges.
package stitcher

import (
	"context"
	"slices"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/log"
)

// Result is the stitched block set.
type Result struct {
	Resolved []block.ID // final blocks in ascending start order, stubs included
	Index    block.Index
	Rejected []block.ID // blocks dropped for asymmetric overlap
}

// Blocks returns copies of the final blocks in ascending start order.
func (r *Result) Blocks(arena *block.Arena) []block.BasicBlock {
	blocks := make([]block.BasicBlock, 0, len(r.Resolved))
	for _, id := range r.Resolved {
		blocks = append(blocks, *arena.Get(id))
	}
	return blocks
}

type stitcher struct {
	logger *log.Logger
	arena  *block.Arena
	result *Result
}

// Stitch sorts all blocks of the arena and merges or splits adjacent pairs
// until no two resolved blocks overlap. Blocks are updated in place.
// Cancellation stops the walk, blocks finalised until then are returned.
func Stitch(ctx context.Context, logger *log.Logger, arena *block.Arena) *Result {
	s := &stitcher{
		logger: logger,
		arena:  arena,
		result: &Result{
			Index: make(block.Index, arena.Len()),
		},
	}

	ids := arena.IDs()
	if len(ids) == 0 {
		return s.result
	}
	slices.SortStableFunc(ids, func(a, b block.ID) int {
		return block.Compare(arena.Get(a), arena.Get(b))
	})

	cur := ids[0]
	for _, next := range ids[1:] {
		if ctx.Err() != nil {
			logger.Debug("Stitching cancelled", log.Int("finalised", len(s.result.Resolved)))
			return s.result
		}

		if s.reconcile(cur, next) {
			continue
		}
		s.finalise(cur)
		cur = next
	}
	s.finalise(cur)

	return s.result
}

// reconcile compares the current block with the next one in sorted order.
// It returns true if next was consumed, in which case cur stays current.
// Otherwise cur is final and next becomes current.
func (s *stitcher) reconcile(curID, nextID block.ID) bool {
	cur := s.arena.Get(curID)
	next := s.arena.Get(nextID)

	if cur.Start == next.Start {
		// resolved blocks sort before stubs of the same start
		switch {
		case !next.Resolved():
			absorb(cur, next)

		case cur.End.Equal(next.End):
			inheritEdges(cur, next)
			absorb(cur, next)

		default:
			s.reject(cur, nextID)
		}
		return true
	}

	if !cur.Contains(next.Start) {
		return false
	}

	if next.Resolved() && !next.End.Equal(cur.End) {
		s.reject(cur, nextID)
		return true
	}

	splitAt(cur, next)
	return false
}

// splitAt cuts cur at the start of next. The tail of cur becomes the content
// of next and cur jumps into it. Both keep the kind of cur, so a head that is
// an entry of its own still counts as a terminated function.
func splitAt(cur, next *block.BasicBlock) {
	inheritEdges(next, cur)
	next.End = cur.End
	next.Kind = cur.Kind
	next.Reached++

	cur.End = block.At(next.Start)
	cur.Jump = block.At(next.Start)
	cur.Fail = block.None
}

// absorb merges the reference counters of a block with the same start into
// dst. Call stubs only count as calls.
func absorb(dst, src *block.BasicBlock) {
	dst.Called += src.Called
	if src.Kind != block.Call || src.Resolved() {
		dst.Reached += src.Reached
	}
}

// inheritEdges copies the successor edges of src that dst does not have.
func inheritEdges(dst, src *block.BasicBlock) {
	if !dst.Jump.IsSet() {
		dst.Jump = src.Jump
	}
	if !dst.Fail.IsSet() {
		dst.Fail = src.Fail
	}
}

func (s *stitcher) reject(cur *block.BasicBlock, nextID block.ID) {
	next := s.arena.Get(nextID)
	s.logger.Warn("Rejecting overlapping block",
		log.Hex("start", uint64(next.Start)),
		log.String("end", next.End.String()),
		log.Hex("overlaps", uint64(cur.Start)),
		log.String("overlaps_end", cur.End.String()))
	s.result.Rejected = append(s.result.Rejected, nextID)
}

func (s *stitcher) finalise(id block.ID) {
	b := s.arena.Get(id)
	s.result.Index[b.Start] = id
	s.result.Resolved = append(s.result.Resolved, id)
}
