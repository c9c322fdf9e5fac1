// Package vmspace composes mapped regions into process address spaces.
// A MappingArea is one contiguous virtual region with a single mapping
// strategy and permission set; a MemorySpace is a page table plus an
// ordered list of areas, with the mmap/munmap/brk/fork surface the
// syscall layer calls into.
package vmspace

import (
	"fmt"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
)

// MapType selects the mapping strategy of an area.
type MapType int

const (
	// MapIdentical maps each virtual page to the equal physical page,
	// used for kernel direct-mapped regions. No frames are tracked.
	MapIdentical MapType = iota
	// MapFramed gives each mapped page its own allocated frame.
	MapFramed
)

func (t MapType) String() string {
	switch t {
	case MapIdentical:
		return "identical"
	case MapFramed:
		return "framed"
	default:
		return "unknown"
	}
}

// AreaType classifies a region for accounting and reporting. It does
// not affect mapping mechanics.
type AreaType int

const (
	AreaKernelText AreaType = iota
	AreaKernelRodata
	AreaKernelData
	AreaKernelBss
	AreaKernelHeap
	AreaKernelMmio
	AreaUserText
	AreaUserRodata
	AreaUserData
	AreaUserBss
	AreaUserStack
	AreaUserHeap
	AreaUserMmap
)

func (t AreaType) String() string {
	switch t {
	case AreaKernelText:
		return "kernel text"
	case AreaKernelRodata:
		return "kernel rodata"
	case AreaKernelData:
		return "kernel data"
	case AreaKernelBss:
		return "kernel bss"
	case AreaKernelHeap:
		return "kernel heap"
	case AreaKernelMmio:
		return "kernel mmio"
	case AreaUserText:
		return "user text"
	case AreaUserRodata:
		return "user rodata"
	case AreaUserData:
		return "user data"
	case AreaUserBss:
		return "user bss"
	case AreaUserStack:
		return "user stack"
	case AreaUserHeap:
		return "user heap"
	case AreaUserMmap:
		return "user mmap"
	default:
		return "unknown"
	}
}

// MappingArea is one contiguous virtual region. The range is fixed at
// construction; resizing an area means replacing it. A framed area owns
// the frames it maps, keyed by page number.
type MappingArea struct {
	vpnRange addr.VpnRange
	areaType AreaType
	mapType  MapType
	perm     pte.Flag
	frames   map[addr.Vpn]*phys.FrameTracker
}

// NewMappingArea creates an unmapped area over r.
func NewMappingArea(
	r addr.VpnRange,
	areaType AreaType,
	mapType MapType,
	perm pte.Flag,
) *MappingArea {
	return &MappingArea{
		vpnRange: r,
		areaType: areaType,
		mapType:  mapType,
		perm:     perm,
		frames:   make(map[addr.Vpn]*phys.FrameTracker),
	}
}

// VpnRange returns the fixed virtual range of the area.
func (a *MappingArea) VpnRange() addr.VpnRange { return a.vpnRange }

// AreaType returns the semantic classification of the area.
func (a *MappingArea) AreaType() AreaType { return a.areaType }

// MapType returns the mapping strategy of the area.
func (a *MappingArea) MapType() MapType { return a.mapType }

// Permission returns the permission set applied to every mapped page.
func (a *MappingArea) Permission() pte.Flag { return a.perm }

// MappedPages returns the number of pages currently holding a tracked
// frame. Identical areas track nothing and report zero.
func (a *MappingArea) MappedPages() int { return len(a.frames) }

// MapOne maps a single page of the area. A framed page gets a fresh
// zeroed frame; failure to allocate one surfaces as ErrFrameAllocFailed
// rather than a panic, so mmap-reachable paths can report ENOMEM.
func (a *MappingArea) MapOne(
	table paging.Table,
	alloc *phys.FrameAllocator,
	vpn addr.Vpn,
) error {
	if !a.vpnRange.Contains(vpn) {
		return fmt.Errorf("vpn %#x outside area: %w",
			uint64(vpn), paging.ErrInvalidAddress)
	}

	switch a.mapType {
	case MapIdentical:
		return table.Map(vpn, addr.Ppn(vpn), paging.Size4K, a.perm)
	case MapFramed:
		ft, ok := alloc.AllocFrame()
		if !ok {
			return fmt.Errorf("map vpn %#x: %w",
				uint64(vpn), paging.ErrFrameAllocFailed)
		}
		if err := table.Map(vpn, ft.Ppn(), paging.Size4K, a.perm); err != nil {
			ft.Release()
			return err
		}
		a.frames[vpn] = ft
		return nil
	default:
		panic("unknown map type")
	}
}

// Map maps every page of the area. On failure the pages mapped so far
// are unwound and the error is returned, leaving the table as it was.
func (a *MappingArea) Map(table paging.Table, alloc *phys.FrameAllocator) error {
	for vpn := a.vpnRange.Start; vpn < a.vpnRange.End; vpn = vpn.Step() {
		if err := a.MapOne(table, alloc, vpn); err != nil {
			for undo := a.vpnRange.Start; undo < vpn; undo = undo.Step() {
				a.UnmapOne(table, undo)
			}
			return err
		}
	}

	return nil
}

// UnmapOne unmaps a single page and, for a framed area, releases the
// owning frame. Unmapping a hole is not an error.
func (a *MappingArea) UnmapOne(table paging.Table, vpn addr.Vpn) {
	if _, _, err := table.Unmap(vpn); err != nil {
		return
	}
	table.FlushTLB(vpn)

	if ft, ok := a.frames[vpn]; ok {
		delete(a.frames, vpn)
		ft.Release()
	}
}

// Unmap unmaps every page of the area and returns all owned frames to
// the allocator.
func (a *MappingArea) Unmap(table paging.Table) {
	for vpn := a.vpnRange.Start; vpn < a.vpnRange.End; vpn = vpn.Step() {
		a.UnmapOne(table, vpn)
	}
}

// CopyData writes data into the area starting at its first page,
// splitting the write at page boundaries. This is the segment-loading
// seam: it runs before the region is exposed, so it writes through the
// table walk, not through the TLB.
func (a *MappingArea) CopyData(
	table paging.Table,
	mem *phys.Memory,
	data []byte,
) error {
	if uint64(len(data)) > a.vpnRange.Len()*addr.PageSize {
		return fmt.Errorf("data exceeds area: %w", paging.ErrInvalidAddress)
	}

	vpn := a.vpnRange.Start
	for off := 0; off < len(data); {
		ppn, _, _, err := table.Walk(vpn)
		if err != nil {
			return err
		}

		n := len(data) - off
		if n > addr.PageSize {
			n = addr.PageSize
		}
		copy(mem.Page(ppn), data[off:off+n])

		off += n
		vpn = vpn.Step()
	}

	return nil
}

// CloneMetadata returns a new area with the same range, classification,
// strategy and permissions but no tracked frames. This is the fork
// seam: metadata duplicates eagerly, frame handling is the memory
// space's business.
func (a *MappingArea) CloneMetadata() *MappingArea {
	return NewMappingArea(a.vpnRange, a.areaType, a.mapType, a.perm)
}

// shrinkTo returns a replacement area covering r, moving the tracked
// frames that fall inside r over to it. Frames outside r stay with the
// receiver; the caller is responsible for unmapping them.
func (a *MappingArea) shrinkTo(r addr.VpnRange) *MappingArea {
	next := NewMappingArea(r, a.areaType, a.mapType, a.perm)
	for vpn, ft := range a.frames {
		if r.Contains(vpn) {
			next.frames[vpn] = ft
			delete(a.frames, vpn)
		}
	}

	return next
}
