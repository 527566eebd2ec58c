// Package options contains the program options.
package options

import (
	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/extractor"
	"github.com/retroenv/retroblaze/internal/sink"
)

// Parameters contains file path options.
type Parameters struct {
	Input  string // input file
	Output string // output file, stdout if empty
	Batch  string // glob of files to process
}

// Flags contains behavior options.
type Flags struct {
	Format   string // output format name
	Arch     string // architecture name, auto-detected if empty
	Binary   bool   // treat input as raw binary
	Verify   bool   // run post-stitch invariant checks
	Debug    bool
	Quiet    bool
	NoReturn string // comma separated list of non-returning addresses
}

// Program options of the analyzer.
type Program struct {
	Parameters
	Flags
}

// Analysis defines options that control a single analysis run.
type Analysis struct {
	Arch     arch.Name
	Format   sink.Format
	Prefix   string // function name prefix
	Base     block.OptAddress
	Start    block.OptAddress
	Size     uint64 // window size, 0 for the rest of the image
	Barrier  int
	NoReturn []block.Address
}

// NewAnalysis returns analysis options with default values.
func NewAnalysis() Analysis {
	return Analysis{
		Format: sink.Commands,
		Prefix: extractor.DefaultPrefix,
	}
}
