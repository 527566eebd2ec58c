// Package loader handles loading of input files into memory images.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/arch/chip8"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/image"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

// ErrNoText is returned for ELF files without an executable .text section.
var ErrNoText = errors.New("no .text section")

const (
	textSection = ".text"

	nesCodeBase  = 0x8000
	nesCodeSize  = 0x8000
	nesResetSize = 4 // reset vector offset from the end of the PRG data
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Options controls how a file is mapped into memory.
type Options struct {
	Arch   arch.Name
	Binary bool             // load the file as raw bytes without parsing a header
	Base   block.OptAddress // load address of raw files
}

// Loader handles loading input files from disk.
type Loader struct{}

// New creates a new file loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the file and maps it into a memory image.
// ELF files map their .text section, NES cartridges map the PRG ROM at
// the CPU address space and all other files are mapped as raw bytes.
func (l *Loader) Load(path string, opts Options) (*image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return l.LoadFromBytes(data, opts)
}

// LoadFromBytes maps in memory file data into an image.
func (l *Loader) LoadFromBytes(data []byte, opts Options) (*image.Image, error) {
	switch {
	case opts.Binary:
		return loadRaw(data, opts), nil
	case bytes.HasPrefix(data, elfMagic):
		return loadELF(data)
	case opts.Arch == arch.M6502:
		return loadCartridge(data)
	default:
		return loadRaw(data, opts), nil
	}
}

// loadRaw maps the data at the base address. CHIP-8 programs default to
// their fixed load address.
func loadRaw(data []byte, opts Options) *image.Image {
	base, ok := opts.Base.Get()
	if !ok && opts.Arch == arch.CHIP8 {
		base = chip8.ProgramStart
	}

	img := image.New(base, data)
	img.Entry = block.At(base)
	return img
}

// loadELF maps the .text section of an ELF file and collects the
// function symbols of the static and dynamic symbol tables.
func loadELF(data []byte) (*image.Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	text := f.Section(textSection)
	if text == nil || text.Type == elf.SHT_NOBITS {
		return nil, ErrNoText
	}
	code, err := text.Data()
	if err != nil {
		return nil, fmt.Errorf("reading %s section: %w", textSection, err)
	}

	img := image.New(block.Address(text.Addr), code)
	if entry := block.Address(f.Entry); img.Contains(entry) {
		img.Entry = block.At(entry)
	}

	for _, read := range []func() ([]elf.Symbol, error){f.Symbols, f.DynamicSymbols} {
		symbols, err := read()
		if err != nil {
			if errors.Is(err, elf.ErrNoSymbols) {
				continue
			}
			return nil, fmt.Errorf("reading ELF symbols: %w", err)
		}
		img.Symbols = append(img.Symbols, functionSymbols(symbols)...)
	}
	return img, nil
}

func functionSymbols(symbols []elf.Symbol) []image.Symbol {
	var result []image.Symbol
	for _, sym := range symbols {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Value == 0 {
			continue
		}
		result = append(result, image.Symbol{
			Name:    sym.Name,
			Address: block.Address(sym.Value),
		})
	}
	return result
}

// loadCartridge maps up to the last 32KB of the PRG ROM so that it ends at
// the top of the CPU address space. A single 16KB bank is mapped at 0xC000.
func loadCartridge(data []byte) (*image.Image, error) {
	cart, err := cartridge.LoadFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	prg := cart.PRG
	if len(prg) < nesResetSize {
		return nil, fmt.Errorf("loading cartridge: PRG size %d too small", len(prg))
	}
	if len(prg) > nesCodeSize {
		prg = prg[len(prg)-nesCodeSize:]
	}

	img := image.New(block.Address(nesCodeBase+nesCodeSize-len(prg)), prg)
	reset := prg[len(prg)-nesResetSize:]
	if entry := block.Address(uint16(reset[0]) | uint16(reset[1])<<8); img.Contains(entry) {
		img.Entry = block.At(entry)
	}
	return img, nil
}
