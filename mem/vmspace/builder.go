package vmspace

import (
	"github.com/rs/xid"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
)

// Builder assembles memory spaces.
type Builder struct {
	tableFactory func() (paging.Table, error)
	alloc        *phys.FrameAllocator
	heapStart    addr.Vaddr
	maxHeapBytes uint64
	mmapWindow   addr.VpnRange
	tracer       Tracer
}

// MakeBuilder returns a builder with default parameters: a 256 MiB heap
// starting at 0x1000_0000 and an mmap window of [0x4000_0000,
// 0x8000_0000).
func MakeBuilder() Builder {
	return Builder{
		heapStart:    0x1000_0000,
		maxHeapBytes: 256 << 20,
		mmapWindow:   addr.NewVpnRange(0x4_0000, 0x8_0000),
	}
}

// WithTableFactory sets the constructor invoked for this space's page
// table and for each forked child's.
func (b Builder) WithTableFactory(f func() (paging.Table, error)) Builder {
	b.tableFactory = f
	return b
}

// WithAllocator sets the frame allocator backing framed areas.
func (b Builder) WithAllocator(a *phys.FrameAllocator) Builder {
	b.alloc = a
	return b
}

// WithHeap sets the heap base address and its maximum size in bytes.
func (b Builder) WithHeap(start addr.Vaddr, maxBytes uint64) Builder {
	b.heapStart = start
	b.maxHeapBytes = maxBytes
	return b
}

// WithMmapWindow sets the page-number range searched by Mmap.
func (b Builder) WithMmapWindow(w addr.VpnRange) Builder {
	b.mmapWindow = w
	return b
}

// WithTracer sets the paging-event tracer.
func (b Builder) WithTracer(t Tracer) Builder {
	b.tracer = t
	return b
}

// Build creates an empty memory space with a fresh page table. It fails
// with ErrFrameAllocFailed when the table's root frame cannot be
// allocated.
func (b Builder) Build() (*MemorySpace, error) {
	if b.tableFactory == nil {
		panic("memory space needs a table factory")
	}
	if b.alloc == nil {
		panic("memory space needs a frame allocator")
	}

	table, err := b.tableFactory()
	if err != nil {
		return nil, err
	}

	return &MemorySpace{
		id:           xid.New().String(),
		table:        table,
		tableFactory: b.tableFactory,
		alloc:        b.alloc,
		mem:          b.alloc.Memory(),
		heapStart:    b.heapStart,
		maxHeapBytes: b.maxHeapBytes,
		brk:          b.heapStart,
		mmapWindow:   b.mmapWindow,
		tracer:       b.tracer,
	}, nil
}
