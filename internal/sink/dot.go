package sink

import (
	"fmt"
	"io"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/extractor"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

// Successor conditions of the rendered graph.
const (
	condTaken       = "T"
	condFallthrough = "F"
)

// DOTWriter collects the control flow graphs of all functions and renders
// them as a single DOT document on Close.
type DOTWriter struct {
	w     io.Writer
	opts  Options
	graph *lattice.CFGGraph
}

// NewDOT returns a sink rendering a DOT graph to w.
func NewDOT(w io.Writer, opts Options) *DOTWriter {
	return &DOTWriter{
		w:     w,
		opts:  opts,
		graph: &lattice.CFGGraph{},
	}
}

// Emit adds the function graph.
func (d *DOTWriter) Emit(fn *extractor.Function) error {
	d.graph.Funcs = append(d.graph.Funcs, buildFuncCFG(fn, d.opts.Prefix))
	return nil
}

// Close renders the collected graphs.
func (d *DOTWriter) Close() error {
	title := d.opts.Title
	if title == "" {
		title = "cfg"
	}
	if _, err := io.WriteString(d.w, render.DOTCFG(d.graph, title)); err != nil {
		return fmt.Errorf("writing dot graph: %w", err)
	}
	return nil
}

// buildFuncCFG converts a function into a lattice graph. Edges to blocks of
// other functions are recorded as call sites of the block.
func buildFuncCFG(fn *extractor.Function, prefix string) *lattice.FuncCFG {
	ids := make(map[block.Address]int, len(fn.Blocks))
	for i := range fn.Blocks {
		ids[fn.Blocks[i].Start] = i
	}

	cfg := &lattice.FuncCFG{Name: fn.Name(prefix)}
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		end, _ := b.End.Get()
		lb := &lattice.BasicBlock{
			ID:    i,
			Start: int(b.Start),
			End:   int(end),
			Term:  b.Kind == block.End,
		}

		jumpCond := ""
		if b.Fail.IsSet() {
			jumpCond = condTaken
		}
		addEdge(lb, ids, b.Jump, jumpCond)
		addEdge(lb, ids, b.Fail, condFallthrough)

		cfg.Blocks = append(cfg.Blocks, lb)
	}
	return cfg
}

func addEdge(lb *lattice.BasicBlock, ids map[block.Address]int, target block.OptAddress, cond string) {
	addr, ok := target.Get()
	if !ok {
		return
	}

	id, ok := ids[addr]
	if !ok {
		lb.Calls = append(lb.Calls, lattice.CallSite{
			Offset: lb.End - lb.Start,
			Callee: fmt.Sprintf("0x%x", uint64(addr)),
		})
		return
	}
	lb.Succs = append(lb.Succs, lattice.Successor{
		BlockID: id,
		Cond:    cond,
	})
}
