package fileprocessor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/options"
	"github.com/retroenv/retroblaze/internal/sink"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestGenerateOutputFilename(t *testing.T) {
	tests := []struct {
		input  string
		format sink.Format
		want   string
	}{
		{"game.nes", sink.Commands, "game.r2"},
		{"dir/libfoo.so", sink.Table, "dir/libfoo.db"},
		{"pong.ch8", sink.DOT, "pong.dot"},
		{"binary", sink.JSONL, "binary.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateOutputFilename(tt.input, tt.format))
		})
	}
}

func TestGetFilesToProcess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin", "c.txt"} {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0xc3}, 0o600))
	}

	opts := options.Program{Parameters: options.Parameters{Batch: filepath.Join(dir, "*.bin")}}
	files, err := GetFilesToProcess(&opts)
	assert.NoError(t, err)
	assert.Len(t, files, 2)

	opts = options.Program{Parameters: options.Parameters{Input: "single.bin"}}
	files, err = GetFilesToProcess(&opts)
	assert.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "single.bin", files[0])
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "code.bin")
	// push rbp, ret
	assert.NoError(t, os.WriteFile(input, []byte{0x55, 0xc3}, 0o600))

	opts := options.Program{
		Parameters: options.Parameters{Input: input, Output: filepath.Join(dir, "code.jsonl")},
		Flags:      options.Flags{Binary: true, Quiet: true},
	}
	analysis := options.NewAnalysis()
	analysis.Arch = arch.X86_64
	analysis.Format = sink.JSONL
	analysis.Base = block.At(0x401000)

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts, analysis)
	assert.NoError(t, err)

	data, err := os.ReadFile(opts.Output)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "0x401000"), string(data))
}

func TestProcessFileMissingInput(t *testing.T) {
	opts := options.Program{
		Parameters: options.Parameters{Input: filepath.Join(t.TempDir(), "missing.bin")},
	}
	analysis := options.NewAnalysis()
	analysis.Arch = arch.X86_64

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts, analysis)
	assert.Error(t, err)
}
