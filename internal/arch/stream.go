package arch

import (
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/image"
)

// Stream decodes instructions from a scan window. It never hands a decoder
// bytes outside of the window.
type Stream struct {
	decoder Decoder
	window  image.Window
}

// NewStream returns a stream that decodes instructions of the window.
func NewStream(decoder Decoder, window image.Window) *Stream {
	return &Stream{
		decoder: decoder,
		window:  window,
	}
}

// Instruction decodes the instruction at the given address. It returns false
// if the address is outside the window or the bytes do not decode.
func (s *Stream) Instruction(addr block.Address) (Instruction, bool) {
	code, err := s.window.Bytes(addr)
	if err != nil {
		return Instruction{}, false
	}

	ins, err := s.decoder.Decode(code, uint64(addr))
	if err != nil || ins.Size <= 0 || ins.Size > len(code) {
		return Instruction{}, false
	}
	return ins, true
}
