// Package pipeline orchestrates the analysis workflow stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/config"
	"github.com/retroenv/retroblaze/internal/detector"
	"github.com/retroenv/retroblaze/internal/extractor"
	"github.com/retroenv/retroblaze/internal/image"
	"github.com/retroenv/retroblaze/internal/loader"
	"github.com/retroenv/retroblaze/internal/noreturn"
	"github.com/retroenv/retroblaze/internal/options"
	"github.com/retroenv/retroblaze/internal/scanner"
	"github.com/retroenv/retroblaze/internal/sink"
	"github.com/retroenv/retroblaze/internal/stitcher"
	"github.com/retroenv/retroblaze/internal/verification"
	"github.com/retroenv/retrogolib/log"
)

// Result contains the outcome of every stage of an analysis run.
type Result struct {
	Arch    arch.Name
	Image   *image.Image
	Window  image.Window
	Scan    *scanner.Result
	Stitch  *stitcher.Result
	Report  *verification.Report // nil unless verification was requested
	Extract *extractor.Result
}

// Pipeline orchestrates the complete analysis workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new analysis pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute loads the input file, analyzes it and writes the extracted
// functions to the sink selected by the analysis options.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, analysis options.Analysis, writer io.Writer) (result *Result, err error) {
	name := p.detector.Detect(analysis.Arch, opts.Input)

	img, err := p.loader.Load(opts.Input, loader.Options{
		Arch:   name,
		Binary: opts.Binary,
		Base:   analysis.Base,
	})
	if err != nil {
		return nil, fmt.Errorf("loading file: %w", err)
	}

	out, err := sink.New(analysis.Format, writer, opts.Output, sink.Options{
		Prefix: analysis.Prefix,
		Title:  filepath.Base(opts.Input),
		Arch:   name.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s output: %w", analysis.Format, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing output: %w", cerr))
		}
	}()

	p.printInfo(opts, name, img)
	analysis.Arch = name
	return p.ExecuteWithImage(ctx, img, analysis, opts.Verify, out)
}

// ExecuteWithImage runs the analysis stages on a pre-loaded image.
// This is useful for testing and programmatic usage where the image is already in memory.
func (p *Pipeline) ExecuteWithImage(ctx context.Context, img *image.Image, analysis options.Analysis,
	verify bool, out sink.Sink) (*Result, error) {

	decoder, err := config.CreateDecoder(analysis.Arch)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	start := img.Base
	if addr, ok := analysis.Start.Get(); ok {
		start = addr
	}
	window, err := img.Window(start, analysis.Size)
	if err != nil {
		return nil, fmt.Errorf("selecting scan window: %w", err)
	}

	result := &Result{
		Arch:   analysis.Arch,
		Image:  img,
		Window: window,
	}

	oracle := p.createOracle(img, analysis.NoReturn)
	scan := scanner.New(p.logger, arch.NewStream(decoder, window), oracle, scanner.Options{
		Barrier: analysis.Barrier,
	})
	result.Scan = scan.Scan(ctx, window.Start, window.Size)

	// a cancelled run still stitches and extracts what was found so far
	result.Stitch = stitcher.Stitch(ctx, p.logger, result.Scan.Arena)
	p.dumpBlocks(result)

	if verify && ctx.Err() == nil {
		result.Report, err = verification.Verify(ctx, p.logger, result.Scan.Arena, result.Stitch, window.Start, window.Size)
		if err != nil {
			return result, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful",
			log.Int("blocks", result.Report.Blocks),
			log.Int("markers", result.Report.Markers),
			log.Hex("gaps", result.Report.Gaps))
	}

	result.Extract, err = extractor.Extract(ctx, p.logger, result.Scan.Arena,
		result.Stitch.Resolved, result.Stitch.Index, out.Emit)
	if err != nil {
		return result, fmt.Errorf("extracting functions: %w", err)
	}

	p.printSummary(result)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("analysis cancelled: %w", err)
	}
	return result, nil
}

// createOracle combines the non-returning routines found by symbol name with
// the explicitly configured addresses.
func (p *Pipeline) createOracle(img *image.Image, addresses []block.Address) *noreturn.Set {
	oracle := noreturn.FromSymbols(img.Symbols, nil)
	for _, addr := range addresses {
		oracle.Add(addr)
	}
	if oracle.Len() > 0 {
		p.logger.Debug("Non-returning routines", log.Int("count", oracle.Len()))
	}
	return oracle
}

// dumpBlocks logs the stitched blocks at debug level.
func (p *Pipeline) dumpBlocks(result *Result) {
	for _, b := range result.Stitch.Blocks(result.Scan.Arena) {
		p.logger.Debug("Block", log.String("block", b.String()))
	}
	for _, id := range result.Stitch.Rejected {
		p.logger.Debug("Rejected block", log.String("block", result.Scan.Arena.Get(id).String()))
	}
}

// printInfo prints information about the file being processed.
func (p *Pipeline) printInfo(opts options.Program, name arch.Name, img *image.Image) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Processing file",
		log.String("file", opts.Input),
		log.Stringer("arch", name),
		log.Hex("base", uint64(img.Base)),
		log.Int("size", len(img.Data)),
	)
	if entry, ok := img.Entry.Get(); ok {
		p.logger.Debug("Entry point", log.Hex("address", uint64(entry)))
	}
}

func (p *Pipeline) printSummary(result *Result) {
	p.logger.Info("Analysis finished",
		log.Int("instructions", result.Scan.Instructions),
		log.Int("invalid_bytes", result.Scan.InvalidBytes),
		log.Int("blocks", len(result.Stitch.Resolved)),
		log.Int("rejected", len(result.Stitch.Rejected)),
		log.Int("functions", result.Extract.Emitted),
		log.Int("discarded", result.Extract.Discarded),
	)
	if result.Scan.Aborted != scanner.NotAborted {
		p.logger.Warn("Scan stopped early",
			log.Stringer("reason", result.Scan.Aborted),
			log.Hex("window_start", uint64(result.Window.Start)))
	}
}
