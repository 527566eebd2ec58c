package sink

import (
	"fmt"
	"io"

	"github.com/retroenv/retroblaze/internal/extractor"
)

// CommandWriter renders functions as af+ and afb+ analysis commands.
type CommandWriter struct {
	w    io.Writer
	opts Options
}

// NewCommands returns a sink writing analysis commands to w.
func NewCommands(w io.Writer, opts Options) *CommandWriter {
	return &CommandWriter{
		w:    w,
		opts: opts,
	}
}

// Emit writes the function declaration followed by one line per block.
func (c *CommandWriter) Emit(fn *extractor.Function) error {
	if _, err := fmt.Fprintf(c.w, "af+ 0x%08x %s\n", uint64(fn.Addr), fn.Name(c.opts.Prefix)); err != nil {
		return fmt.Errorf("writing function: %w", err)
	}

	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		if _, err := fmt.Fprintf(c.w, "afb+ 0x%08x 0x%08x %d 0x%08x 0x%08x\n",
			uint64(fn.Addr), uint64(b.Start), b.Size(), rawAddress(b.Jump), rawAddress(b.Fail)); err != nil {
			return fmt.Errorf("writing block: %w", err)
		}
	}
	return nil
}

// Close is a no-op, the writer is owned by the caller.
func (c *CommandWriter) Close() error {
	return nil
}
