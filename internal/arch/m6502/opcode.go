package m6502

import (
	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retrogolib/arch/cpu/m6502"
)

// Instruction names that are not exported as typed values by retrogolib.
const (
	nameBrk = "brk"
	nameRti = "rti"
	nameRts = "rts"
)

// operandSize maps an addressing mode to the number of operand bytes that
// follow the opcode byte.
var operandSize = map[m6502.AddressingMode]int{
	m6502.ImpliedAddressing:     0,
	m6502.AccumulatorAddressing: 0,
	m6502.ImmediateAddressing:   1,
	m6502.ZeroPageAddressing:    1,
	m6502.ZeroPageXAddressing:   1,
	m6502.ZeroPageYAddressing:   1,
	m6502.RelativeAddressing:    1,
	m6502.IndirectXAddressing:   1,
	m6502.IndirectYAddressing:   1,
	m6502.AbsoluteAddressing:    2,
	m6502.AbsoluteXAddressing:   2,
	m6502.AbsoluteYAddressing:   2,
	m6502.IndirectAddressing:    2,
}

// Opcode wraps a retrogolib opcode table entry.
type Opcode struct {
	op m6502.Opcode
}

// Name returns the instruction mnemonic.
func (o Opcode) Name() string {
	if o.op.Instruction == nil {
		return ""
	}
	return o.op.Instruction.Name
}

// Size returns the encoded size of the instruction in bytes.
func (o Opcode) Size() int {
	return 1 + operandSize[o.op.Addressing]
}

// Type classifies the opcode by its control flow effect.
func (o Opcode) Type() arch.Type {
	ins := o.op.Instruction
	if ins == nil {
		return arch.Unknown
	}

	switch name := ins.Name; {
	case name == m6502.Jsr.Name:
		return arch.Call
	case name == m6502.Jmp.Name:
		return arch.Jump
	case name == nameRts || name == nameRti:
		return arch.Return
	case name == nameBrk:
		return arch.Trap
	case ins.Unofficial:
		return arch.Illegal
	case name == m6502.Nop.Name:
		return arch.Nop
	}

	if _, ok := m6502.BranchingInstructions[ins.Name]; ok && o.op.Addressing == m6502.RelativeAddressing {
		return arch.ConditionalJump
	}
	return arch.Other
}
