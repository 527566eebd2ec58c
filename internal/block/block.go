// Package block contains the basic block data model shared by the scanner,
// the stitcher and the function extractor.
package block

import "fmt"

// Address is a virtual address in the analysed image.
type Address uint64

// OptAddress is an address that may be absent. The zero value is None.
type OptAddress struct {
	addr Address
	ok   bool
}

// None is the absent address.
var None = OptAddress{}

// At returns a set optional address.
func At(addr Address) OptAddress {
	return OptAddress{addr: addr, ok: true}
}

// Get returns the address and whether it is set.
func (o OptAddress) Get() (Address, bool) {
	return o.addr, o.ok
}

// IsSet returns whether the address is set.
func (o OptAddress) IsSet() bool {
	return o.ok
}

// Equal returns whether both values are unset or hold the same address.
func (o OptAddress) Equal(other OptAddress) bool {
	if o.ok != other.ok {
		return false
	}
	return !o.ok || o.addr == other.addr
}

func (o OptAddress) String() string {
	if !o.ok {
		return "-"
	}
	return fmt.Sprintf("0x%08x", uint64(o.addr))
}

// compare orders unset values before set ones.
func (o OptAddress) compare(other OptAddress) int {
	switch {
	case o.ok != other.ok:
		if !o.ok {
			return -1
		}
		return 1
	case o.addr < other.addr:
		return -1
	case o.addr > other.addr:
		return 1
	}
	return 0
}

// Kind records why a block ends, or for stubs why it was created.
type Kind int

// Block kinds.
const (
	Trap Kind = iota
	Normal
	Jump
	Fail
	Call
	End
)

var kindNames = map[Kind]string{
	Trap:   "trap",
	Normal: "normal",
	Jump:   "jump",
	Fail:   "fail",
	Call:   "call",
	End:    "end",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// BasicBlock is a run of instructions with one entry and one exit, or a stub
// for an address that something jumps to or calls before it was scanned.
type BasicBlock struct {
	Start Address
	End   OptAddress // unset for stubs

	Jump OptAddress
	Fail OptAddress

	Kind    Kind
	Score   int
	Called  int // references as call target
	Reached int // references as jump or fall-through target
}

// Resolved returns whether the extent of the block is known.
func (b *BasicBlock) Resolved() bool {
	return b.End.IsSet()
}

// Size returns the signed length of the block, 0 for stubs.
// A negative value signals a corrupted merge.
func (b *BasicBlock) Size() int64 {
	end, ok := b.End.Get()
	if !ok {
		return 0
	}
	return int64(end) - int64(b.Start)
}

// Contains returns whether addr lies strictly after the start and before the
// end of a resolved block.
func (b *BasicBlock) Contains(addr Address) bool {
	end, ok := b.End.Get()
	return ok && addr > b.Start && addr < end
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("s: 0x%08x e: %s j: %s f: %s t: %s score: %d reached: %d called: %d",
		uint64(b.Start), b.End, b.Jump, b.Fail, b.Kind, b.Score, b.Reached, b.Called)
}

// Compare defines a total order over block content: start address, resolved
// blocks before stubs, then every remaining field. Sorting with it makes the
// stitching result independent of discovery order.
func Compare(a, b *BasicBlock) int {
	switch {
	case a.Start < b.Start:
		return -1
	case a.Start > b.Start:
		return 1
	}
	if a.Resolved() != b.Resolved() {
		if a.Resolved() {
			return -1
		}
		return 1
	}
	if c := a.End.compare(b.End); c != 0 {
		return c
	}
	if c := compareInt(int(a.Kind), int(b.Kind)); c != 0 {
		return c
	}
	if c := a.Jump.compare(b.Jump); c != 0 {
		return c
	}
	if c := a.Fail.compare(b.Fail); c != 0 {
		return c
	}
	if c := compareInt(a.Score, b.Score); c != 0 {
		return c
	}
	if c := compareInt(a.Reached, b.Reached); c != 0 {
		return c
	}
	return compareInt(a.Called, b.Called)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
