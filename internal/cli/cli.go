// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/extractor"
	"github.com/retroenv/retroblaze/internal/options"
	"github.com/retroenv/retroblaze/internal/scanner"
	"github.com/retroenv/retroblaze/internal/sink"
)

// addressFlags holds the numeric flags that are parsed after the flag set.
type addressFlags struct {
	start string
	size  string
	base  string
}

// ParseFlags parses command line flags and returns program and analysis options
func ParseFlags() (options.Program, options.Analysis, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	analysis := options.NewAnalysis()
	var addrs addressFlags
	readOptionFlags(flags, &opts)
	readAnalysisFlags(flags, &analysis, &addrs)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Input == "" && opts.Batch == "") {
		return opts, analysis, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, analysis, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	if err := normalizeOptions(opts, &analysis, addrs); err != nil {
		return opts, analysis, err
	}
	return opts, analysis, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retroblaze [options] <file to analyze>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg != "" && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to analyze, please pass the file to analyze as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions validates the option values and converts them into the
// analysis options.
func normalizeOptions(opts options.Program, analysis *options.Analysis, addrs addressFlags) error {
	format, err := sink.FormatFromString(opts.Format)
	if err != nil {
		return fmt.Errorf("parsing format: %w", err)
	}
	if format == sink.Table && opts.Output == "" && opts.Batch == "" {
		return fmt.Errorf("format %s needs an output file set with -o: %w", format, sink.ErrMissingPath)
	}
	analysis.Format = format

	if opts.Arch != "" {
		name, err := arch.NameFromString(strings.ToLower(opts.Arch))
		if err != nil {
			return fmt.Errorf("parsing architecture: %w", err)
		}
		analysis.Arch = name
	}

	if analysis.Start, err = parseOptAddress(addrs.start); err != nil {
		return fmt.Errorf("parsing start address: %w", err)
	}
	if analysis.Base, err = parseOptAddress(addrs.base); err != nil {
		return fmt.Errorf("parsing base address: %w", err)
	}
	if addrs.size != "" {
		if analysis.Size, err = strconv.ParseUint(addrs.size, 0, 64); err != nil {
			return fmt.Errorf("parsing size: %w", err)
		}
	}

	analysis.NoReturn, err = ParseAddressList(opts.NoReturn)
	if err != nil {
		return fmt.Errorf("parsing noreturn addresses: %w", err)
	}
	return nil
}

// ParseAddressList parses a comma separated list of addresses. Numbers are
// accepted in decimal or with a 0x prefix as hex.
func ParseAddressList(s string) ([]block.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	addresses := make([]block.Address, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseUint(part, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address '%s': %w", part, err)
		}
		addresses = append(addresses, block.Address(value))
	}
	return addresses, nil
}

func parseOptAddress(s string) (block.OptAddress, error) {
	if s == "" {
		return block.None, nil
	}
	value, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return block.None, fmt.Errorf("invalid address '%s': %w", s, err)
	}
	return block.At(block.Address(value)), nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input file")
	flags.StringVar(&opts.Output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically name output files, for example *.elf")
	flags.StringVar(&opts.Format, "f", string(sink.Commands), "output format ("+joinNames(sink.Formats, "/")+")")
	flags.StringVar(&opts.Arch, "s", "", "architecture to analyze ("+joinNames(arch.Names, ", ")+") - if not auto-detected from the file")
	flags.StringVar(&opts.NoReturn, "noreturn", "", "comma separated list of addresses of functions that do not return")
	flags.BoolVar(&opts.Binary, "binary", false, "read input file as raw binary file without any header")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the block partition after stitching")
}

func joinNames[T ~string](names []T, sep string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = string(name)
	}
	return strings.Join(parts, sep)
}

func readAnalysisFlags(flags *flag.FlagSet, opts *options.Analysis, addrs *addressFlags) {
	flags.StringVar(&addrs.start, "start", "", "start address of the scan window (default: start of the .text section or image base)")
	flags.StringVar(&addrs.size, "size", "", "size of the scan window in bytes (default: rest of the image)")
	flags.StringVar(&addrs.base, "base", "", "load address for raw binary files")
	flags.IntVar(&opts.Barrier, "barrier", scanner.DefaultBarrier, "block score below which scanning is aborted")
	flags.StringVar(&opts.Prefix, "prefix", extractor.DefaultPrefix, "function name prefix")
}
