package extractor

import (
	"fmt"

	"github.com/retroenv/retroblaze/internal/block"
)

// DefaultPrefix is the name prefix of discovered functions.
const DefaultPrefix = "fcn"

// Function is a group of blocks connected by jump and fail edges.
type Function struct {
	Addr   block.Address
	Size   uint64 // sum of block lengths, the blocks need not be contiguous
	Blocks []block.BasicBlock
	Score  int
	Ends   int // blocks with kind End
}

func newFunction(entry block.Address) *Function {
	return &Function{
		Addr: entry,
	}
}

// Valid returns whether the function contains a terminating block.
func (f *Function) Valid() bool {
	return f.Ends > 0
}

// Name returns the generated function name, for example fcn.401000.
func (f *Function) Name(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.%x", prefix, uint64(f.Addr))
}

func (f *Function) add(b *block.BasicBlock) {
	f.Blocks = append(f.Blocks, *b)
	f.Size += uint64(b.Size())
	f.Score += b.Score
	if b.Kind == block.End {
		f.Ends++
	}
}
