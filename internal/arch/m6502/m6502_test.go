package m6502

import (
	"errors"
	"testing"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecode(t *testing.T) {
	d := New()

	tests := []struct {
		name   string
		code   []byte
		size   int
		typ    arch.Type
		target block.OptAddress
	}{
		{"jsr", []byte{0x20, 0x00, 0x90}, 3, arch.Call, block.At(0x9000)},
		{"jmp absolute", []byte{0x4c, 0x10, 0x80}, 3, arch.Jump, block.At(0x8010)},
		{"jmp indirect", []byte{0x6c, 0x00, 0x02}, 3, arch.Jump, block.None},
		{"bne backwards", []byte{0xd0, 0xfe}, 2, arch.ConditionalJump, block.At(0x8000)},
		{"beq forward", []byte{0xf0, 0x02}, 2, arch.ConditionalJump, block.At(0x8004)},
		{"rts", []byte{0x60}, 1, arch.Return, block.None},
		{"rti", []byte{0x40}, 1, arch.Return, block.None},
		{"brk", []byte{0x00}, 1, arch.Trap, block.None},
		{"nop", []byte{0xea}, 1, arch.Nop, block.None},
		{"lda immediate", []byte{0xa9, 0x01}, 2, arch.Other, block.None},
		{"sta absolute", []byte{0x8d, 0x00, 0x20}, 3, arch.Other, block.None},
		{"lax unofficial", []byte{0xa7, 0x10}, 2, arch.Illegal, block.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := d.Decode(tt.code, 0x8000)
			assert.NoError(t, err)
			assert.Equal(t, tt.size, ins.Size)
			assert.Equal(t, tt.typ, ins.Type)
			assert.True(t, tt.target.Equal(ins.Target), ins.Target.String())
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	d := New()

	_, err := d.Decode([]byte{0x20, 0x00}, 0x8000)
	assert.True(t, errors.Is(err, arch.ErrUnknownOpcode))

	_, err = d.Decode(nil, 0x8000)
	assert.True(t, errors.Is(err, arch.ErrUnknownOpcode))
}
