// Package phys models physical memory as a page-granular arena and
// provides the frame allocator that hands out ownership-tracked frames
// from it. Page tables live inside the arena in their exact hardware
// encodings, so the multi-level walks operate on real table memory.
package phys

import (
	"encoding/binary"
	"fmt"

	"github.com/polyarch/vmem/mem/addr"
)

// EntriesPerPage is the number of 64-bit page-table entries in one frame.
const EntriesPerPage = addr.PageSize / 8

// Memory is a contiguous run of physical page frames backed by host
// memory. The arena starts at a configurable physical base so frame
// numbers look like the ones a real machine would produce.
type Memory struct {
	basePpn   addr.Ppn
	numFrames uint64
	data      []byte
}

// BasePpn returns the first frame of the arena.
func (m *Memory) BasePpn() addr.Ppn { return m.basePpn }

// EndPpn returns the first frame past the arena.
func (m *Memory) EndPpn() addr.Ppn { return m.basePpn.StepBy(m.numFrames) }

// NumFrames returns the number of frames in the arena.
func (m *Memory) NumFrames() uint64 { return m.numFrames }

// Contains returns true if ppn lies inside the arena.
func (m *Memory) Contains(ppn addr.Ppn) bool {
	return ppn >= m.basePpn && ppn < m.EndPpn()
}

// ContainsPaddr returns true if p lies inside the arena.
func (m *Memory) ContainsPaddr(p addr.Paddr) bool {
	return p >= m.basePpn.StartAddr() && p < m.EndPpn().StartAddr()
}

func (m *Memory) pageOffset(ppn addr.Ppn) uint64 {
	if !m.Contains(ppn) {
		panic(fmt.Sprintf("frame %#x outside physical memory [%#x, %#x)",
			ppn, m.basePpn, m.EndPpn()))
	}
	return uint64(ppn-m.basePpn) << addr.PageShift
}

// Page returns the raw bytes of one frame.
func (m *Memory) Page(ppn addr.Ppn) []byte {
	off := m.pageOffset(ppn)
	return m.data[off : off+addr.PageSize]
}

// ZeroPage clears one frame.
func (m *Memory) ZeroPage(ppn addr.Ppn) {
	page := m.Page(ppn)
	for i := range page {
		page[i] = 0
	}
}

// Word reads the i-th 64-bit entry of a frame.
func (m *Memory) Word(ppn addr.Ppn, i int) uint64 {
	if i < 0 || i >= EntriesPerPage {
		panic(fmt.Sprintf("entry index %d out of range", i))
	}
	page := m.Page(ppn)
	return binary.LittleEndian.Uint64(page[i*8:])
}

// SetWord writes the i-th 64-bit entry of a frame.
func (m *Memory) SetWord(ppn addr.Ppn, i int, w uint64) {
	if i < 0 || i >= EntriesPerPage {
		panic(fmt.Sprintf("entry index %d out of range", i))
	}
	page := m.Page(ppn)
	binary.LittleEndian.PutUint64(page[i*8:], w)
}

// Read copies len(buf) bytes starting at p into buf. The read must not
// cross the end of the arena.
func (m *Memory) Read(p addr.Paddr, buf []byte) {
	ppn := addr.PpnFromAddrFloor(p)
	off := m.pageOffset(ppn) + p.PageOffset()
	copy(buf, m.data[off:off+uint64(len(buf))])
}

// Write copies buf into the arena starting at p. The write must not cross
// the end of the arena.
func (m *Memory) Write(p addr.Paddr, buf []byte) {
	ppn := addr.PpnFromAddrFloor(p)
	off := m.pageOffset(ppn) + p.PageOffset()
	copy(m.data[off:off+uint64(len(buf))], buf)
}
