package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/retroenv/retroblaze/internal/extractor"
)

// FunctionRecord is one line of the JSON lines output.
type FunctionRecord struct {
	PC     string        `json:"pc"`
	Name   string        `json:"name"`
	Size   uint64        `json:"size"`
	Score  int           `json:"score"`
	Ends   int           `json:"ends"`
	Arch   string        `json:"arch,omitempty"`
	Blocks []BlockRecord `json:"blocks"`
}

// BlockRecord describes one block of a function record.
type BlockRecord struct {
	Start string `json:"start"`
	Size  int64  `json:"size"`
	Jump  string `json:"jump,omitempty"`
	Fail  string `json:"fail,omitempty"`
	Kind  string `json:"kind"`
	Score int    `json:"score"`
}

// JSONLWriter writes one JSON object per function.
type JSONLWriter struct {
	enc  *json.Encoder
	opts Options
}

// NewJSONL returns a sink writing JSON lines to w.
func NewJSONL(w io.Writer, opts Options) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{
		enc:  enc,
		opts: opts,
	}
}

// Emit writes the function record.
func (j *JSONLWriter) Emit(fn *extractor.Function) error {
	if err := j.enc.Encode(newFunctionRecord(fn, j.opts)); err != nil {
		return fmt.Errorf("encoding function: %w", err)
	}
	return nil
}

// Close is a no-op, the writer is owned by the caller.
func (j *JSONLWriter) Close() error {
	return nil
}

func newFunctionRecord(fn *extractor.Function, opts Options) FunctionRecord {
	rec := FunctionRecord{
		PC:     fmt.Sprintf("0x%x", uint64(fn.Addr)),
		Name:   fn.Name(opts.Prefix),
		Size:   fn.Size,
		Score:  fn.Score,
		Ends:   fn.Ends,
		Arch:   opts.Arch,
		Blocks: make([]BlockRecord, 0, len(fn.Blocks)),
	}
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		rec.Blocks = append(rec.Blocks, BlockRecord{
			Start: fmt.Sprintf("0x%x", uint64(b.Start)),
			Size:  b.Size(),
			Jump:  hexAddress(b.Jump),
			Fail:  hexAddress(b.Fail),
			Kind:  b.Kind.String(),
			Score: b.Score,
		})
	}
	return rec
}
