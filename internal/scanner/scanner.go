// Package scanner implements the linear block discovery pass. It walks the
// instructions of a window in address order and records basic blocks and
// stubs for every branch and call target it encounters.
package scanner

import (
	"context"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/noreturn"
	"github.com/retroenv/retrogolib/log"
)

// DefaultBarrier is the block score below which a window is considered to be
// non-code and scanning is aborted. It is a heuristic and can be tuned with
// Options.Barrier.
const DefaultBarrier = -20000

// invalidPenalty is subtracted from the block score for every byte that does
// not decode and every illegal instruction.
const invalidPenalty = 10

// maxPreallocated limits the initial arena capacity for large windows.
const maxPreallocated = 1 << 16

// Source returns the decoded instruction at an address of the scan window.
type Source interface {
	Instruction(addr block.Address) (arch.Instruction, bool)
}

// Options configures a scan.
type Options struct {
	Barrier int
}

// AbortReason describes why a scan stopped before the end of its window.
type AbortReason int

// Abort reasons.
const (
	NotAborted AbortReason = iota
	BarrierReached
	Cancelled
)

func (r AbortReason) String() string {
	switch r {
	case NotAborted:
		return "none"
	case BarrierReached:
		return "barrier"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result contains the raw, unordered blocks of a scan.
type Result struct {
	Arena        *block.Arena
	Instructions int // successfully decoded instructions
	InvalidBytes int // bytes skipped for resynchronization
	Aborted      AbortReason
}

// Scanner discovers basic blocks.
type Scanner struct {
	logger *log.Logger
	src    Source
	oracle noreturn.Oracle
	opts   Options
}

// New returns a scanner reading instructions from src. A zero barrier in opts
// selects DefaultBarrier.
func New(logger *log.Logger, src Source, oracle noreturn.Oracle, opts Options) *Scanner {
	if opts.Barrier == 0 {
		opts.Barrier = DefaultBarrier
	}
	if oracle == nil {
		oracle = noreturn.New()
	}
	return &Scanner{
		logger: logger,
		src:    src,
		oracle: oracle,
		opts:   opts,
	}
}

// scan holds the state of a single scan run.
type scan struct {
	*Scanner

	result     *Result
	blockStart block.Address
	blockScore int
}

// Scan walks the window [start, start+size) and returns all discovered blocks
// and target stubs. Cancellation and the score barrier stop the scan early,
// the blocks recorded until then are returned.
func (s *Scanner) Scan(ctx context.Context, start block.Address, size uint64) *Result {
	st := &scan{
		Scanner: s,
		result: &Result{
			Arena: block.NewArena(int(min(size/8, maxPreallocated)) + 1),
		},
		blockStart: start,
	}

	var cursor uint64
	for cursor < size {
		if ctx.Err() != nil {
			st.result.Aborted = Cancelled
			break
		}
		if st.blockScore < s.opts.Barrier {
			st.result.Aborted = BarrierReached
			break
		}

		addr := start + block.Address(cursor)
		ins, ok := s.src.Instruction(addr)
		if !ok || !ins.Valid() {
			st.blockScore -= invalidPenalty
			st.result.InvalidBytes++
			cursor++
			continue
		}

		st.result.Instructions++
		st.process(addr, ins)
		cursor += uint64(ins.Size)
	}

	end := start + block.Address(cursor)
	switch {
	case st.result.Aborted != NotAborted:
		s.logger.Debug("Scan aborted",
			log.Stringer("reason", st.result.Aborted),
			log.Hex("address", uint64(end)),
			log.Int("score", st.blockScore))

	case st.blockStart < end:
		st.addBlock(block.BasicBlock{
			Start: st.blockStart,
			End:   block.At(end),
			Kind:  block.Normal,
			Score: st.blockScore,
		})
	}

	return st.result
}

// process reacts to the control flow effect of a decoded instruction.
func (st *scan) process(addr block.Address, ins arch.Instruction) {
	next := addr + block.Address(ins.Size)

	switch ins.Type {
	case arch.Call:
		target, known := ins.Target.Get()
		if known {
			st.addStub(target, block.Call)
		}
		if known && st.oracle.IsNoReturn(target) {
			st.endBlock(next, block.None, block.None, block.End)
		}

	case arch.Jump:
		st.endBlock(next, ins.Target, block.None, block.End)

	case arch.ConditionalJump:
		st.endBlock(next, ins.Target, block.At(next), block.Normal)

	case arch.Return:
		st.endBlock(next, block.None, block.None, block.End)

	case arch.Trap:
		if st.blockStart < addr {
			st.addBlock(block.BasicBlock{
				Start: st.blockStart,
				End:   block.At(addr),
				Kind:  block.Normal,
				Score: st.blockScore,
			})
		}
		st.blockStart = next
		st.blockScore = 0

	case arch.Unknown, arch.Illegal:
		st.blockScore -= invalidPenalty
	}
}

// endBlock records the current block ending at end and starts a new one.
func (st *scan) endBlock(end block.Address, jump, fail block.OptAddress, kind block.Kind) {
	st.addBlock(block.BasicBlock{
		Start: st.blockStart,
		End:   block.At(end),
		Jump:  jump,
		Fail:  fail,
		Kind:  kind,
		Score: st.blockScore,
	})
	st.blockStart = end
	st.blockScore = 0
}

// addBlock records a resolved block together with a stub for each of its
// successor edges.
func (st *scan) addBlock(b block.BasicBlock) {
	if target, ok := b.Jump.Get(); ok {
		st.addStub(target, block.Jump)
	}
	if target, ok := b.Fail.Get(); ok {
		st.addStub(target, block.Fail)
	}
	st.result.Arena.Add(b)
}

// addStub records a placeholder for a referenced address.
func (st *scan) addStub(target block.Address, kind block.Kind) {
	stub := block.BasicBlock{
		Start:   target,
		Kind:    kind,
		Reached: 1,
	}
	if kind == block.Call {
		stub.Called = 1
	}
	st.result.Arena.Add(stub)
}
