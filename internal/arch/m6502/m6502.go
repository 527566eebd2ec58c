// Package m6502 provides a 6502 instruction decoder for the block scanner.
package m6502

import (
	"fmt"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/arch/cpu/m6502"
)

var _ arch.Decoder = Decoder{}

// Decoder decodes 6502 instructions including the unofficial opcodes.
type Decoder struct{}

// New returns a 6502 decoder.
func New() Decoder {
	return Decoder{}
}

// MaxInstructionSize returns the longest 6502 instruction encoding.
func (Decoder) MaxInstructionSize() int {
	return int(m6502.MaxOpcodeSize)
}

// Decode decodes the instruction at the start of code.
func (Decoder) Decode(code []byte, pc uint64) (arch.Instruction, error) {
	if len(code) == 0 {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%04x: %w", pc, arch.ErrUnknownOpcode)
	}

	op := Opcode{op: m6502.Opcodes[code[0]]}
	if op.op.Instruction == nil {
		return arch.Instruction{}, fmt.Errorf("decoding opcode 0x%02x at 0x%04x: %w", code[0], pc, arch.ErrUnknownOpcode)
	}

	size := op.Size()
	if len(code) < size {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%04x: truncated instruction: %w", pc, arch.ErrUnknownOpcode)
	}

	ins := arch.Instruction{
		Size:     size,
		Mnemonic: op.Name(),
		Type:     op.Type(),
	}
	if ins.Type == arch.Call || ins.Type == arch.Jump || ins.Type == arch.ConditionalJump {
		ins.Target = op.target(code, uint16(pc))
	}
	return ins, nil
}

// target returns the branch destination for absolute and relative
// addressing. Indirect jumps have no static target.
func (o Opcode) target(code []byte, pc uint16) block.OptAddress {
	switch o.op.Addressing {
	case m6502.AbsoluteAddressing:
		return block.At(block.Address(uint16(code[1]) | uint16(code[2])<<8))

	case m6502.RelativeAddressing:
		offset := uint16(code[1])
		if offset < 0x80 {
			pc += 2 + offset
		} else {
			pc += 2 + offset - 0x100
		}
		return block.At(block.Address(pc))

	default:
		return block.None
	}
}
