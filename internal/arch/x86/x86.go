// Package x86 provides an x86 and x86-64 instruction decoder for the block scanner.
package x86

import (
	"fmt"
	"strings"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"golang.org/x/arch/x86/x86asm"
)

// maxInstructionSize is the architectural limit of an x86 instruction encoding.
const maxInstructionSize = 15

var _ arch.Decoder = (*Decoder)(nil)

// Decoder decodes x86 instructions of a fixed processor mode.
type Decoder struct {
	mode int
}

// New returns a decoder for the given processor mode in bits, 32 or 64.
func New(mode int) (*Decoder, error) {
	if mode != 32 && mode != 64 {
		return nil, fmt.Errorf("unsupported x86 mode %d", mode)
	}
	return &Decoder{mode: mode}, nil
}

// MaxInstructionSize returns the longest possible instruction encoding.
func (d *Decoder) MaxInstructionSize() int {
	return maxInstructionSize
}

// Decode decodes the instruction at the start of code.
func (d *Decoder) Decode(code []byte, pc uint64) (arch.Instruction, error) {
	// ENDBR64 (f3 0f 1e fa) and ENDBR32 (f3 0f 1e fb) are not known to x86asm.
	if isEndBranch(code) {
		return arch.Instruction{
			Size:     4,
			Mnemonic: "endbr",
			Type:     arch.Nop,
		}, nil
	}

	inst, err := x86asm.Decode(code, d.mode)
	if err != nil {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%x: %w", pc, arch.ErrUnknownOpcode)
	}
	if inst.Op == 0 {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%x: %w", pc, arch.ErrUnknownOpcode)
	}

	ins := arch.Instruction{
		Size:     inst.Len,
		Mnemonic: strings.ToLower(inst.Op.String()),
		Type:     classify(inst.Op),
	}

	switch ins.Type {
	case arch.Call, arch.Jump, arch.ConditionalJump:
		ins.Target = d.target(inst, pc)
	}
	return ins, nil
}

// target returns the statically known branch target. Register and memory
// indirect targets are unknown.
func (d *Decoder) target(inst x86asm.Inst, pc uint64) block.OptAddress {
	rel, ok := inst.Args[0].(x86asm.Rel)
	if !ok {
		return block.None
	}

	addr := pc + uint64(inst.Len) + uint64(int64(rel))
	if d.mode == 32 {
		addr &= 0xffffffff
	}
	return block.At(block.Address(addr))
}

func isEndBranch(code []byte) bool {
	return len(code) >= 4 &&
		code[0] == 0xf3 && code[1] == 0x0f && code[2] == 0x1e &&
		(code[3] == 0xfa || code[3] == 0xfb)
}

func classify(op x86asm.Op) arch.Type {
	switch op {
	case x86asm.NOP:
		return arch.Nop

	case x86asm.CALL, x86asm.LCALL:
		return arch.Call

	case x86asm.JMP, x86asm.LJMP:
		return arch.Jump

	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return arch.ConditionalJump

	case x86asm.RET, x86asm.LRET, x86asm.IRET, x86asm.IRETD, x86asm.IRETQ, x86asm.SYSRET:
		return arch.Return

	case x86asm.INT, x86asm.HLT:
		return arch.Trap

	case x86asm.UD0, x86asm.UD1, x86asm.UD2:
		return arch.Illegal
	}
	return arch.Other
}
