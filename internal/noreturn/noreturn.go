// Package noreturn answers whether a call target never returns to its caller.
package noreturn

import (
	"github.com/retroenv/retroblaze/internal/block"
	"github.com/retroenv/retroblaze/internal/image"
	"github.com/retroenv/retrogolib/set"
)

// Oracle reports whether a call target is a known non-returning routine.
type Oracle interface {
	IsNoReturn(addr block.Address) bool
}

// Names lists well-known routines of common C runtimes that never return.
var Names = []string{
	"exit",
	"_exit",
	"_Exit",
	"abort",
	"quick_exit",
	"__assert_fail",
	"__stack_chk_fail",
	"__cxa_throw",
	"__cxa_rethrow",
	"__libc_start_main",
	"longjmp",
	"siglongjmp",
	"pthread_exit",
	"err",
	"errx",
	"verr",
	"verrx",
	"__fortify_fail",
	"__chk_fail",
	"_Unwind_Resume",
	"runtime.throw",
	"runtime.goexit",
	"runtime.gopanic",
}

// Set is an Oracle backed by a set of addresses.
type Set struct {
	addresses set.Set[block.Address]
}

// New returns a set containing the given addresses.
func New(addresses ...block.Address) *Set {
	s := &Set{
		addresses: set.New[block.Address](),
	}
	for _, addr := range addresses {
		s.Add(addr)
	}
	return s
}

// FromSymbols returns a set with the addresses of all symbols whose name is
// in names. Passing nil names uses the default Names list.
func FromSymbols(symbols []image.Symbol, names []string) *Set {
	if names == nil {
		names = Names
	}
	wanted := set.New[string]()
	for _, name := range names {
		wanted.Add(name)
	}

	s := New()
	for _, sym := range symbols {
		if wanted.Contains(sym.Name) {
			s.Add(sym.Address)
		}
	}
	return s
}

// Add marks the address as non-returning.
func (s *Set) Add(addr block.Address) {
	s.addresses.Add(addr)
}

// Len returns the number of known non-returning addresses.
func (s *Set) Len() int {
	return len(s.addresses)
}

// IsNoReturn returns whether the address is a known non-returning routine.
func (s *Set) IsNoReturn(addr block.Address) bool {
	return s.addresses.Contains(addr)
}
