// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retroblaze/internal/options"
	"github.com/retroenv/retroblaze/internal/pipeline"
	"github.com/retroenv/retroblaze/internal/sink"
	"github.com/retroenv/retrogolib/log"
)

// outputExtensions maps output formats to the file extension of generated output names.
var outputExtensions = map[sink.Format]string{
	sink.Commands: ".r2",
	sink.Table:    ".db",
	sink.DOT:      ".dot",
	sink.JSONL:    ".jsonl",
}

// ProcessFile handles the complete file processing workflow
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program, analysis options.Analysis) error {
	var writer io.Writer
	if analysis.Format != sink.Table {
		var err error
		writer, err = createWriter(opts)
		if err != nil {
			return fmt.Errorf("creating writer: %w", err)
		}
		defer func() {
			if closer, ok := writer.(io.Closer); ok && writer != os.Stdout {
				_ = closer.Close()
			}
		}()
	}

	p := pipeline.New(logger)
	if _, err := p.Execute(ctx, opts, analysis, writer); err != nil {
		return fmt.Errorf("analyzing %s: %w", opts.Input, err)
	}
	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file
func GenerateOutputFilename(inputFile string, format sink.Format) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + outputExtensions[format]
}

func createWriter(opts options.Program) (io.Writer, error) {
	if opts.Output == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("retroblaze", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
