package block

// ID addresses a block inside an Arena. IDs stay valid for the lifetime of
// the arena.
type ID int

// Arena owns all blocks of an analysis run.
type Arena struct {
	blocks []BasicBlock
}

// NewArena returns an arena with room for capacity blocks.
func NewArena(capacity int) *Arena {
	return &Arena{
		blocks: make([]BasicBlock, 0, capacity),
	}
}

// Add stores a copy of the block and returns its ID.
func (a *Arena) Add(b BasicBlock) ID {
	a.blocks = append(a.blocks, b)
	return ID(len(a.blocks) - 1)
}

// Get returns the block stored under the ID. The pointer is valid until the
// next call to Add.
func (a *Arena) Get(id ID) *BasicBlock {
	return &a.blocks[id]
}

// Len returns the number of stored blocks.
func (a *Arena) Len() int {
	return len(a.blocks)
}

// IDs returns all IDs in insertion order.
func (a *Arena) IDs() []ID {
	ids := make([]ID, len(a.blocks))
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Index maps block start addresses to the owning block.
type Index map[Address]ID

// Lookup resolves an optional edge target to a block ID.
func (idx Index) Lookup(target OptAddress) (ID, bool) {
	addr, ok := target.Get()
	if !ok {
		return 0, false
	}
	id, ok := idx[addr]
	return id, ok
}
