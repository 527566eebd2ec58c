// Package verification checks that a stitched block set is a consistent
// partition of the scanned window.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/stitcher"
	"github.com/retroenv/retrogolib/log"
)

// Verification errors.
var (
	ErrOverlap       = errors.New("overlapping blocks")
	ErrDanglingEdge  = errors.New("edge target without block")
	ErrNotIdempotent = errors.New("stitching is not idempotent")
)

// maxLoggedIssues limits the number of logged issues per check.
const maxLoggedIssues = 10

// Report contains statistics gathered during verification.
type Report struct {
	Blocks  int    // resolved blocks
	Markers int    // unresolved stubs
	Covered uint64 // bytes of the window covered by resolved blocks
	Gaps    uint64 // bytes of the window not covered, traps and aborted tails
}

// Verify checks the partition and edge invariants of the stitched blocks and
// that stitching them again changes nothing.
func Verify(ctx context.Context, logger *log.Logger, arena *block.Arena, stitched *stitcher.Result,
	start block.Address, size uint64) (*Report, error) {
	blocks := stitched.Blocks(arena)

	report, err := checkPartition(logger, blocks, start, size)
	if err != nil {
		return report, err
	}
	if err := checkEdges(logger, blocks, stitched.Index); err != nil {
		return report, err
	}
	if err := checkIdempotent(ctx, logger, blocks); err != nil {
		return report, err
	}
	return report, nil
}

func checkPartition(logger *log.Logger, blocks []block.BasicBlock, start block.Address, size uint64) (*Report, error) {
	report := &Report{}
	windowEnd := start + block.Address(size)

	var overlaps int
	var prevEnd block.Address
	havePrev := false
	for i := range blocks {
		b := &blocks[i]
		end, ok := b.End.Get()
		if !ok {
			report.Markers++
			continue
		}
		report.Blocks++

		if havePrev && b.Start < prevEnd {
			overlaps++
			if overlaps <= maxLoggedIssues {
				logger.Error("Block overlaps previous block",
					log.Hex("start", uint64(b.Start)),
					log.Hex("previous_end", uint64(prevEnd)))
			}
		}
		prevEnd = max(prevEnd, end)
		havePrev = true

		report.Covered += overlapSize(b.Start, end, start, windowEnd)
	}
	report.Gaps = size - min(size, report.Covered)

	if overlaps > 0 {
		return report, fmt.Errorf("%d blocks: %w", overlaps, ErrOverlap)
	}
	return report, nil
}

func checkEdges(logger *log.Logger, blocks []block.BasicBlock, index block.Index) error {
	var dangling int
	check := func(from block.Address, target block.OptAddress) {
		if !target.IsSet() {
			return
		}
		if _, ok := index.Lookup(target); ok {
			return
		}
		dangling++
		if dangling <= maxLoggedIssues {
			logger.Error("Dangling edge",
				log.Hex("block", uint64(from)),
				log.String("target", target.String()))
		}
	}

	for i := range blocks {
		check(blocks[i].Start, blocks[i].Jump)
		check(blocks[i].Start, blocks[i].Fail)
	}

	if dangling > 0 {
		return fmt.Errorf("%d edges: %w", dangling, ErrDanglingEdge)
	}
	return nil
}

func checkIdempotent(ctx context.Context, logger *log.Logger, blocks []block.BasicBlock) error {
	arena := block.NewArena(len(blocks))
	for _, b := range blocks {
		arena.Add(b)
	}

	again := stitcher.Stitch(ctx, logger, arena).Blocks(arena)
	if len(again) != len(blocks) {
		return fmt.Errorf("block count changed from %d to %d: %w", len(blocks), len(again), ErrNotIdempotent)
	}
	for i := range blocks {
		if block.Compare(&blocks[i], &again[i]) != 0 {
			logger.Error("Block changed when stitched again",
				log.String("before", blocks[i].String()),
				log.String("after", again[i].String()))
			return fmt.Errorf("block 0x%x changed: %w", uint64(blocks[i].Start), ErrNotIdempotent)
		}
	}
	return nil
}

// overlapSize returns the number of bytes [start, end) shares with the window.
func overlapSize(start, end, windowStart, windowEnd block.Address) uint64 {
	lo := max(start, windowStart)
	hi := min(end, windowEnd)
	if hi <= lo {
		return 0
	}
	return uint64(hi - lo)
}
