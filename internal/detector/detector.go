// Package detector handles architecture detection.
package detector

import (
	"debug/elf"
	"path/filepath"
	"strings"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retrogolib/log"
)

// Detector handles architecture detection from file headers, extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new architecture detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the architecture to analyze. An explicitly requested
// architecture wins, otherwise the ELF machine type of the input is used,
// falling back to the filename extension.
func (d *Detector) Detect(requested arch.Name, filename string) arch.Name {
	if requested != "" {
		return requested
	}

	name, ok := detectFromELF(filename)
	if !ok {
		name = detectFromExtension(filename)
	}
	d.logger.Debug("Auto-detected architecture",
		log.Stringer("arch", name),
		log.String("file", filename))
	return name
}

var elfMachines = map[elf.Machine]arch.Name{
	elf.EM_386:     arch.X86,
	elf.EM_X86_64:  arch.X86_64,
	elf.EM_AARCH64: arch.ARM64,
}

// detectFromELF returns the architecture of an ELF file.
func detectFromELF(filename string) (arch.Name, bool) {
	f, err := elf.Open(filename)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	name, ok := elfMachines[f.Machine]
	return name, ok
}

// detectFromExtension determines the architecture based on the file extension.
func detectFromExtension(filename string) arch.Name {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".ch8", ".rom":
		return arch.CHIP8
	case ".nes":
		return arch.M6502
	default:
		// Default to x86-64 for unknown extensions
		return arch.X86_64
	}
}
