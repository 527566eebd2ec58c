// Package arch contains types and functions used for multi architecture support.
// It acts as a bridge between the block scanner and the architecture specific
// instruction decoders.
package arch

import (
	"errors"
	"fmt"

	"github.com/retroenv/retroblaze/internal/block"
)

// ErrUnknownOpcode is returned by decoders for bytes that do not form a known instruction.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Name identifies a supported architecture.
type Name string

// Supported architectures.
const (
	X86    Name = "x86"
	X86_64 Name = "x86-64"
	ARM64  Name = "arm64"
	M6502  Name = "6502"
	CHIP8  Name = "chip8"
)

// Names lists all supported architectures.
var Names = []Name{X86, X86_64, ARM64, M6502, CHIP8}

// NameFromString returns the architecture for the given name.
func NameFromString(s string) (Name, error) {
	switch s {
	case "x86", "i386", "386":
		return X86, nil
	case "x86-64", "x86_64", "amd64", "x64":
		return X86_64, nil
	case "arm64", "aarch64":
		return ARM64, nil
	case "6502", "m6502", "nes":
		return M6502, nil
	case "chip8", "chip-8":
		return CHIP8, nil
	}
	return "", fmt.Errorf("unsupported architecture '%s'", s)
}

func (n Name) String() string {
	return string(n)
}

// Type classifies an instruction by its control flow effect.
type Type int

// Instruction types.
const (
	Other Type = iota
	Nop
	Call
	Jump
	ConditionalJump
	Return
	Trap
	Unknown
	Illegal
)

var typeNames = map[Type]string{
	Other:           "other",
	Nop:             "nop",
	Call:            "call",
	Jump:            "jump",
	ConditionalJump: "cjump",
	Return:          "ret",
	Trap:            "trap",
	Unknown:         "unknown",
	Illegal:         "illegal",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Instruction is the decoded summary of a single instruction.
type Instruction struct {
	Size     int
	Mnemonic string
	Type     Type
	Target   block.OptAddress // statically known jump or call target
}

// Valid returns whether the decoder produced a usable mnemonic.
// Decoders mark undecodable bytes with a mnemonic starting with '?'.
func (i Instruction) Valid() bool {
	return i.Size > 0 && i.Mnemonic != "" && i.Mnemonic[0] != '?'
}

// Decoder decodes a single instruction from the start of code, which is
// located at address pc. code ends at the end of the scan window, decoders
// must not assume any bytes beyond it.
type Decoder interface {
	// Decode returns the instruction summary or an error if the bytes do not
	// form an instruction.
	Decode(code []byte, pc uint64) (Instruction, error)
	// MaxInstructionSize returns the longest possible instruction encoding.
	MaxInstructionSize() int
}
