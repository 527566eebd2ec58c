// Package arm64 provides an AArch64 instruction decoder for the block scanner.
package arm64

import (
	"fmt"
	"strings"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"golang.org/x/arch/arm64/arm64asm"
)

const instructionSize = 4

// condAlways is the shared prefix of the AL and NV conditions, both of
// which branch unconditionally.
const condAlways = 0b111

var _ arch.Decoder = Decoder{}

// Decoder decodes fixed width AArch64 instructions.
type Decoder struct{}

// New returns an AArch64 decoder.
func New() Decoder {
	return Decoder{}
}

// MaxInstructionSize returns the size of every AArch64 instruction.
func (Decoder) MaxInstructionSize() int {
	return instructionSize
}

// Decode decodes the instruction at the start of code.
func (Decoder) Decode(code []byte, pc uint64) (arch.Instruction, error) {
	if len(code) < instructionSize {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%x: truncated instruction: %w", pc, arch.ErrUnknownOpcode)
	}

	inst, err := arm64asm.Decode(code[:instructionSize])
	if err != nil {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%x: %w", pc, arch.ErrUnknownOpcode)
	}

	ins := arch.Instruction{
		Size:     instructionSize,
		Mnemonic: strings.ToLower(inst.Op.String()),
		Type:     classify(inst),
	}

	switch ins.Type {
	case arch.Call, arch.Jump, arch.ConditionalJump:
		ins.Target = target(inst, pc)
	}
	return ins, nil
}

func classify(inst arm64asm.Inst) arch.Type {
	switch inst.Op {
	case arm64asm.NOP:
		return arch.Nop

	case arm64asm.BL, arm64asm.BLR:
		return arch.Call

	case arm64asm.B:
		if cond, ok := inst.Args[0].(arm64asm.Cond); ok && cond.Value>>1 != condAlways {
			return arch.ConditionalJump
		}
		return arch.Jump

	case arm64asm.BR:
		return arch.Jump

	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		return arch.ConditionalJump

	case arm64asm.RET, arm64asm.ERET:
		return arch.Return

	case arm64asm.BRK, arm64asm.HLT:
		return arch.Trap
	}
	return arch.Other
}

// target returns the pc relative branch target. Register branches have none.
func target(inst arm64asm.Inst, pc uint64) block.OptAddress {
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if rel, ok := arg.(arm64asm.PCRel); ok {
			return block.At(block.Address(pc + uint64(int64(rel))))
		}
	}
	return block.None
}
