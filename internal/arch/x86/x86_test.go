package x86

import (
	"errors"
	"testing"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecode64(t *testing.T) {
	d, err := New(64)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		code     []byte
		size     int
		typ      arch.Type
		target   block.OptAddress
		mnemonic string
	}{
		{"ret", []byte{0xc3}, 1, arch.Return, block.None, "ret"},
		{"nop", []byte{0x90}, 1, arch.Nop, block.None, "nop"},
		{"endbr64", []byte{0xf3, 0x0f, 0x1e, 0xfa}, 4, arch.Nop, block.None, "endbr"},
		{"call rel32", []byte{0xe8, 0x10, 0x00, 0x00, 0x00}, 5, arch.Call, block.At(0x1015), "call"},
		{"jmp short", []byte{0xeb, 0x02}, 2, arch.Jump, block.At(0x1004), "jmp"},
		{"jmp backwards", []byte{0xeb, 0xfe}, 2, arch.Jump, block.At(0x1000), "jmp"},
		{"je", []byte{0x74, 0x06}, 2, arch.ConditionalJump, block.At(0x1008), "je"},
		{"jmp rax", []byte{0xff, 0xe0}, 2, arch.Jump, block.None, "jmp"},
		{"call rax", []byte{0xff, 0xd0}, 2, arch.Call, block.None, "call"},
		{"int3", []byte{0xcc}, 1, arch.Trap, block.None, "int"},
		{"hlt", []byte{0xf4}, 1, arch.Trap, block.None, "hlt"},
		{"ud2", []byte{0x0f, 0x0b}, 2, arch.Illegal, block.None, "ud2"},
		{"mov", []byte{0x48, 0x89, 0xc3}, 3, arch.Other, block.None, "mov"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := d.Decode(tt.code, 0x1000)
			assert.NoError(t, err)
			assert.Equal(t, tt.size, ins.Size)
			assert.Equal(t, tt.typ, ins.Type)
			assert.Equal(t, tt.mnemonic, ins.Mnemonic)
			assert.True(t, tt.target.Equal(ins.Target), ins.Target.String())
			assert.True(t, ins.Valid())
		})
	}
}

func TestDecode32TargetWraps(t *testing.T) {
	d, err := New(32)
	assert.NoError(t, err)

	ins, err := d.Decode([]byte{0xe8, 0xf0, 0xff, 0xff, 0xff}, 0)
	assert.NoError(t, err)
	assert.Equal(t, arch.Call, ins.Type)
	addr, ok := ins.Target.Get()
	assert.True(t, ok)
	assert.Equal(t, block.Address(0xfffffff5), addr)
}

func TestDecodeTruncated(t *testing.T) {
	d, err := New(64)
	assert.NoError(t, err)

	_, err = d.Decode([]byte{0xe8, 0x00}, 0x1000)
	assert.True(t, errors.Is(err, arch.ErrUnknownOpcode))

	_, err = d.Decode(nil, 0x1000)
	assert.True(t, errors.Is(err, arch.ErrUnknownOpcode))
}

func TestNewInvalidMode(t *testing.T) {
	_, err := New(16)
	assert.ErrorContains(t, err, "unsupported x86 mode")
}
