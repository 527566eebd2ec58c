// Package config handles application configuration and setup
package config

import (
	"fmt"

	"github.com/retroenv/retroblaze/internal/arch"
	"github.com/retroenv/retroblaze/internal/arch/arm64"
	"github.com/retroenv/retroblaze/internal/arch/chip8"
	"github.com/retroenv/retroblaze/internal/arch/m6502"
	"github.com/retroenv/retroblaze/internal/arch/x86"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// CreateDecoder creates the instruction decoder for an architecture.
func CreateDecoder(name arch.Name) (arch.Decoder, error) {
	switch name {
	case arch.X86, arch.X86_64:
		mode := 64
		if name == arch.X86 {
			mode = 32
		}
		dec, err := x86.New(mode)
		if err != nil {
			return nil, fmt.Errorf("creating x86 decoder: %w", err)
		}
		return dec, nil
	case arch.ARM64:
		return arm64.New(), nil
	case arch.M6502:
		return m6502.New(), nil
	case arch.CHIP8:
		return chip8.New(), nil
	default:
		return nil, fmt.Errorf("unsupported architecture '%s'", name)
	}
}
