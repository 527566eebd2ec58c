// Package sink contains the outputs that receive extracted functions.
package sink

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/extractor"
)

// ErrMissingPath is returned for formats that write to a named file.
var ErrMissingPath = errors.New("output path required")

// Sink receives every accepted function of an analysis run.
type Sink interface {
	Emit(fn *extractor.Function) error
	Close() error
}

// Format selects a sink implementation.
type Format string

// Supported output formats.
const (
	Commands Format = "commands"
	Table    Format = "table"
	DOT      Format = "dot"
	JSONL    Format = "jsonl"
)

// Formats lists all supported output formats.
var Formats = []Format{Commands, Table, DOT, JSONL}

// FormatFromString returns the output format for the given name.
func FormatFromString(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format '%s'", s)
}

// Options configures the sinks.
type Options struct {
	Prefix string // function name prefix
	Title  string // graph or database label, usually the input file name
	Arch   string
}

// New returns a sink of the given format. Text formats write to w, the table
// format opens the sqlite database at path. Closing the sink never closes w.
func New(format Format, w io.Writer, path string, opts Options) (Sink, error) {
	switch format {
	case Commands:
		return NewCommands(w, opts), nil
	case JSONL:
		return NewJSONL(w, opts), nil
	case DOT:
		return NewDOT(w, opts), nil
	case Table:
		if path == "" {
			return nil, fmt.Errorf("format %s: %w", format, ErrMissingPath)
		}
		return OpenTable(path, opts)
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
}

// noAddress renders an absent edge the way the analysis command interface
// expects it.
const noAddress = ^uint64(0)

func rawAddress(o block.OptAddress) uint64 {
	addr, ok := o.Get()
	if !ok {
		return noAddress
	}
	return uint64(addr)
}

func hexAddress(o block.OptAddress) string {
	addr, ok := o.Get()
	if !ok {
		return ""
	}
	return fmt.Sprintf("0x%x", uint64(addr))
}
