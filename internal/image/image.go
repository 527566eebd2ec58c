// Package image contains the in-memory view of a loaded binary.
package image

import (
	"errors"
	"fmt"

	"github.com/retroenv/retroblaze/internal/block"
)

// ErrOutOfRange is returned for addresses that are not mapped by the image.
var ErrOutOfRange = errors.New("address out of range")

// Symbol is a named address found in the loaded file.
type Symbol struct {
	Name    string
	Address block.Address
}

// Image is a contiguous block of code mapped at a base address.
type Image struct {
	Base    block.Address
	Data    []byte
	Entry   block.OptAddress // entry point if the file format declares one
	Symbols []Symbol
}

// New returns an image of data mapped at base.
func New(base block.Address, data []byte) *Image {
	return &Image{
		Base: base,
		Data: data,
	}
}

// End returns the first address after the image.
func (img *Image) End() block.Address {
	return img.Base + block.Address(len(img.Data))
}

// Contains returns whether the address is mapped by the image.
func (img *Image) Contains(addr block.Address) bool {
	return addr >= img.Base && addr < img.End()
}

// Window returns the scan window [start, start+size) clamped to the image.
// A size of 0 selects everything from start to the end of the image.
func (img *Image) Window(start block.Address, size uint64) (Window, error) {
	if !img.Contains(start) {
		return Window{}, fmt.Errorf("start 0x%x outside image [0x%x, 0x%x): %w",
			uint64(start), uint64(img.Base), uint64(img.End()), ErrOutOfRange)
	}

	available := uint64(img.End() - start)
	if size == 0 || size > available {
		size = available
	}
	return Window{
		img:   img,
		Start: start,
		Size:  size,
	}, nil
}

// Window is a bounded view of an image that the scanner may read from.
type Window struct {
	img   *Image
	Start block.Address
	Size  uint64
}

// End returns the first address after the window.
func (w Window) End() block.Address {
	return w.Start + block.Address(w.Size)
}

// Contains returns whether the address is inside the window.
func (w Window) Contains(addr block.Address) bool {
	return addr >= w.Start && addr < w.End()
}

// Bytes returns the bytes from addr up to the end of the window.
func (w Window) Bytes(addr block.Address) ([]byte, error) {
	if w.img == nil || !w.Contains(addr) {
		return nil, fmt.Errorf("reading address 0x%x: %w", uint64(addr), ErrOutOfRange)
	}
	from := addr - w.img.Base
	to := w.End() - w.img.Base
	return w.img.Data[from:to], nil
}
