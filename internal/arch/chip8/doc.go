// Package chip8 provides a CHIP-8 instruction decoder for the block scanner.
//
// # Memory Layout
//
// CHIP-8 systems have 4KB of memory (0x000-MaxAddress):
//   - 0x000-0x1FF: Interpreter area (not used for user programs)
//   - ProgramStart-MaxAddress: User program and data area
//
// # Control Flow
//
// All instructions are 2 bytes, big endian, with 12-bit addresses embedded:
//   - JP addr and CALL addr have a static target
//   - JP V0, addr is an indirect jump without a static target
//   - RET returns from a subroutine
//   - SE, SNE, SKP and SKNP skip the following instruction, which is modeled
//     as a conditional jump over it
package chip8
