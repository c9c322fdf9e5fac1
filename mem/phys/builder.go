package phys

import (
	"fmt"

	"github.com/polyarch/vmem/mem/addr"
)

// A Builder can build physical memory arenas.
type Builder struct {
	basePaddr addr.Paddr
	numFrames uint64
}

// MakeBuilder creates a builder with the default arena shape: 16 MiB of
// frames starting at 0x8000_0000, the QEMU virt machine layout.
func MakeBuilder() Builder {
	return Builder{
		basePaddr: 0x8000_0000,
		numFrames: 4096,
	}
}

// WithBasePaddr sets the physical address of the first frame. It must be
// page aligned.
func (b Builder) WithBasePaddr(p addr.Paddr) Builder {
	b.basePaddr = p
	return b
}

// WithNumFrames sets the number of frames in the arena.
func (b Builder) WithNumFrames(n uint64) Builder {
	b.numFrames = n
	return b
}

// WithSize sets the arena size in bytes, rounded down to whole frames.
func (b Builder) WithSize(bytes uint64) Builder {
	b.numFrames = bytes >> addr.PageShift
	return b
}

// Build returns a newly created arena.
func (b Builder) Build() *Memory {
	if !b.basePaddr.IsPageAligned() {
		panic(fmt.Sprintf("base paddr %#x is not page aligned", b.basePaddr))
	}
	if b.numFrames == 0 {
		panic("physical memory must hold at least one frame")
	}

	return &Memory{
		basePpn:   addr.PpnFromAddrFloor(b.basePaddr),
		numFrames: b.numFrames,
		data:      make([]byte, b.numFrames<<addr.PageShift),
	}
}
