package cli

import (
	"errors"
	"os"
	"testing"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/scanner"
	"github.com/retroenv/retroblaze/internal/sink"
	"github.com/retroenv/retrogolib/assert"
)

func setArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = args
}

func TestParseFlagsDefaults(t *testing.T) {
	setArgs(t, "prog", "test.elf")

	opts, analysis, err := ParseFlags()
	assert.NoError(t, err)
	assert.Equal(t, "test.elf", opts.Input)
	assert.Equal(t, sink.Commands, analysis.Format)
	assert.Equal(t, "fcn", analysis.Prefix)
	assert.Equal(t, scanner.DefaultBarrier, analysis.Barrier)
	assert.Equal(t, arch.Name(""), analysis.Arch)
	assert.False(t, analysis.Start.IsSet())
	assert.False(t, analysis.Base.IsSet())
	assert.Equal(t, uint64(0), analysis.Size)
}

func TestParseFlagsAnalysisOptions(t *testing.T) {
	setArgs(t, "prog", "-f", "jsonl", "-s", "AArch64", "-start", "0x4000", "-size", "256",
		"-base", "0x1000", "-barrier", "-500", "-prefix", "sub", "-noreturn", "0x10, 0x20", "test.bin")

	opts, analysis, err := ParseFlags()
	assert.NoError(t, err)
	assert.Equal(t, "test.bin", opts.Input)
	assert.Equal(t, sink.JSONL, analysis.Format)
	assert.Equal(t, arch.ARM64, analysis.Arch)
	assert.True(t, analysis.Start.Equal(block.At(0x4000)))
	assert.True(t, analysis.Base.Equal(block.At(0x1000)))
	assert.Equal(t, uint64(256), analysis.Size)
	assert.Equal(t, -500, analysis.Barrier)
	assert.Equal(t, "sub", analysis.Prefix)
	assert.Len(t, analysis.NoReturn, 2)
	assert.Equal(t, block.Address(0x20), analysis.NoReturn[1])
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"prog"}},
		{"unknown format", []string{"prog", "-f", "asm", "test.elf"}},
		{"unknown architecture", []string{"prog", "-s", "z80", "test.elf"}},
		{"invalid start", []string{"prog", "-start", "0xzz", "test.elf"}},
		{"invalid size", []string{"prog", "-size", "-1", "test.elf"}},
		{"invalid noreturn", []string{"prog", "-noreturn", "exit", "test.elf"}},
		{"table without output", []string{"prog", "-f", "table", "test.elf"}},
		{"flag after file", []string{"prog", "test.elf", "-debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setArgs(t, tt.args...)
			_, _, err := ParseFlags()
			assert.Error(t, err)
		})
	}
}

func TestParseFlagsUsageError(t *testing.T) {
	setArgs(t, "prog")

	_, _, err := ParseFlags()
	var usageErr *UsageError
	assert.True(t, errors.As(err, &usageErr))

	setArgs(t, "prog", "-f", "table", "test.elf")
	_, _, err = ParseFlags()
	assert.True(t, errors.Is(err, sink.ErrMissingPath))
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []block.Address
		err   bool
	}{
		{"empty", "", nil, false},
		{"single hex", "0x401000", []block.Address{0x401000}, false},
		{"mixed", "16, 0x20,,", []block.Address{16, 0x20}, false},
		{"invalid", "0x10,abort", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddressList(tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}
