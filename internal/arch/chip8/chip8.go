package chip8

import (
	"fmt"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// CHIP-8 memory layout constants.
const (
	// ProgramStart is the memory address where CHIP-8 programs begin execution.
	// Programs are stored starting at offset 0 in ROM files.
	ProgramStart = 0x200

	// MaxAddress is the highest valid address in CHIP-8 memory space (4KB total).
	MaxAddress = 0xFFF
)

// opcodeSize is the size of CHIP-8 instructions in bytes.
const opcodeSize = 2

// jumpIndirectPrefix is the high nibble of JP V0, addr.
const jumpIndirectPrefix = 0xB000

// Compile-time check to ensure Decoder implements arch.Decoder.
var _ arch.Decoder = Decoder{}

// Decoder decodes CHIP-8 instructions.
type Decoder struct{}

// New returns a CHIP-8 decoder.
func New() Decoder {
	return Decoder{}
}

// MaxInstructionSize returns the size of every CHIP-8 instruction.
func (Decoder) MaxInstructionSize() int {
	return opcodeSize
}

// Decode decodes the instruction at the start of code.
func (Decoder) Decode(code []byte, pc uint64) (arch.Instruction, error) {
	if len(code) < opcodeSize {
		return arch.Instruction{}, fmt.Errorf("decoding at 0x%03x: truncated instruction: %w", pc, arch.ErrUnknownOpcode)
	}

	w := uint16(code[0])<<8 | uint16(code[1])
	op, ok := lookup(w)
	if !ok {
		return arch.Instruction{}, fmt.Errorf("decoding opcode 0x%04x at 0x%03x: %w", w, pc, arch.ErrUnknownOpcode)
	}

	ins := arch.Instruction{
		Size:     opcodeSize,
		Mnemonic: op.Instruction.Name,
	}
	next := pc + opcodeSize

	switch {
	case op.Instruction == chip8.Call:
		ins.Type = arch.Call
		ins.Target = block.At(block.Address(w & MaxAddress))

	case op.Instruction == chip8.Jp:
		ins.Type = arch.Jump
		if w&0xF000 != jumpIndirectPrefix {
			ins.Target = block.At(block.Address(w & MaxAddress))
		}

	case op.Instruction == chip8.Ret:
		ins.Type = arch.Return

	case chip8.SkipInstructions.Contains(op.Instruction.Name):
		ins.Type = arch.ConditionalJump
		ins.Target = block.At(block.Address(next + opcodeSize))

	default:
		ins.Type = arch.Other
	}
	return ins, nil
}

// lookup finds the opcode table entry matching the instruction word.
func lookup(w uint16) (chip8.Opcode, bool) {
	firstNibble := (w & 0xF000) >> 12
	for _, op := range chip8.Opcodes[int(firstNibble)] {
		if op.Info.Mask&w == op.Info.Value && op.Instruction != nil {
			return op, true
		}
	}
	return chip8.Opcode{}, false
}
