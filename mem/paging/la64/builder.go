package la64

import (
	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
)

// Builder assembles LoongArch64 page tables.
type Builder struct {
	alloc  *phys.FrameAllocator
	core   *paging.Core
	isUser bool
}

// MakeBuilder returns a builder with default parameters. Tables are
// user tables unless AsKernelTable is called.
func MakeBuilder() Builder {
	return Builder{isUser: true}
}

// WithAllocator sets the frame allocator that provides table frames.
func (b Builder) WithAllocator(a *phys.FrameAllocator) Builder {
	b.alloc = a
	return b
}

// WithCore binds the table to the core whose root register and TLB its
// Activate and flush operations drive.
func (b Builder) WithCore(c *paging.Core) Builder {
	b.core = c
	return b
}

// AsKernelTable marks the table as the shared kernel table.
func (b Builder) AsKernelTable() Builder {
	b.isUser = false
	return b
}

// Build allocates a zeroed root frame and returns the table. It fails
// with ErrFrameAllocFailed when no frame is available.
func (b Builder) Build() (*Table, error) {
	if b.alloc == nil {
		panic("la64 table needs a frame allocator")
	}
	if b.core == nil {
		panic("la64 table needs a core")
	}

	rootFrame, ok := b.alloc.AllocFrame()
	if !ok {
		return nil, paging.ErrFrameAllocFailed
	}

	return &Table{
		mem:    b.alloc.Memory(),
		alloc:  b.alloc,
		core:   b.core,
		root:   rootFrame.Ppn(),
		frames: []*phys.FrameTracker{rootFrame},
		isUser: b.isUser,
	}, nil
}

// BuildFromRoot returns a handle over an existing table rooted at root.
// The handle owns no frames; Release on it is a no-op.
func (b Builder) BuildFromRoot(root addr.Ppn) *Table {
	if b.alloc == nil {
		panic("la64 table needs a frame allocator")
	}
	if b.core == nil {
		panic("la64 table needs a core")
	}

	return &Table{
		mem:    b.alloc.Memory(),
		alloc:  b.alloc,
		core:   b.core,
		root:   root,
		isUser: b.isUser,
	}
}
