// Package paging defines the architecture-independent page-table
// contract. Each hardware backend (sv39, la64) implements Table over the
// physical memory arena; everything above this package is generic over
// the backend.
package paging

import (
	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/pte"
)

// PageSize is the size in bytes of one mapped leaf.
type PageSize uint64

// Supported leaf sizes.
const (
	Size4K PageSize = 0x1000
	Size2M PageSize = 0x20_0000
	Size1G PageSize = 0x4000_0000
)

// Pages returns the number of base pages one leaf of this size covers.
func (s PageSize) Pages() uint64 { return uint64(s) >> addr.PageShift }

// IsValid returns true for a supported leaf size.
func (s PageSize) IsValid() bool {
	return s == Size4K || s == Size2M || s == Size1G
}

// Table is the contract every architecture's page table implements. An
// entry at any level is either absent, a pointer to the next level, or a
// leaf mapping a physical page of some size; that state machine is
// carried by entry validity, not an explicit enum.
//
// Mutations are immediately visible to table walks, but no operation
// flushes the hardware TLB implicitly: after a map, unmap, retarget or
// permission downgrade that changes a previously-valid translation, the
// caller invalidates explicitly through FlushTLB or FlushTLBAll.
type Table interface {
	// RootPpn returns the frame holding the root table.
	RootPpn() addr.Ppn
	// IsUserTable reports whether the table belongs to a user address
	// space and therefore owns its structure frames.
	IsUserTable() bool

	// Levels returns the table depth.
	Levels() int
	// MaxVaBits returns the number of significant virtual address bits.
	MaxVaBits() int
	// MaxPaBits returns the number of significant physical address bits.
	MaxPaBits() int

	// Map installs a leaf for vpn. It fails with ErrAlreadyMapped if a
	// valid leaf already covers vpn, ErrHugePageConflict if a huge leaf
	// blocks the walk, ErrInvalidFlags if the leaf would carry none of
	// R/W/X, ErrInvalidAddress if vpn or ppn is misaligned for the size,
	// and ErrFrameAllocFailed if an intermediate table frame cannot be
	// allocated.
	Map(vpn addr.Vpn, ppn addr.Ppn, size PageSize, flags pte.Flag) error
	// Unmap removes the leaf covering vpn and returns what it mapped so
	// the caller can decide whether to release a tracked frame.
	Unmap(vpn addr.Vpn) (addr.Ppn, PageSize, error)
	// Mvmap retargets an existing mapping to a new physical page.
	Mvmap(vpn addr.Vpn, target addr.Ppn, size PageSize, flags pte.Flag) error
	// UpdateFlags replaces the permission bits of an existing leaf
	// without touching its physical target.
	UpdateFlags(vpn addr.Vpn, flags pte.Flag) error
	// Walk is a read-only lookup. It never allocates.
	Walk(vpn addr.Vpn) (addr.Ppn, PageSize, pte.Flag, error)
	// Translate resolves a virtual address through the bound core's TLB,
	// falling back to a walk on a miss. It returns false if unmapped.
	Translate(vaddr addr.Vaddr) (addr.Paddr, bool)

	// MapRange maps r to the contiguous physical run starting at
	// startPpn. On error, entries applied before the failure keep their
	// new state; callers unwind with UnmapRange.
	MapRange(r addr.VpnRange, startPpn addr.Ppn, size PageSize, flags pte.Flag) error
	// UnmapRange unmaps every mapped page in r, skipping holes, so it
	// doubles as the unwind path for a failed MapRange.
	UnmapRange(r addr.VpnRange) error
	// UpdateFlagsRange applies UpdateFlags across r. Same partial-failure
	// contract as MapRange.
	UpdateFlagsRange(r addr.VpnRange, flags pte.Flag) error

	// Activate loads the root into the bound core's root register and
	// flushes that core's TLB. Other cores are unaffected.
	Activate()
	// FlushTLB invalidates the bound core's cached translation for vpn.
	FlushTLB(vpn addr.Vpn)
	// FlushTLBAll invalidates every cached translation on the bound core.
	FlushTLBAll()

	// Release returns the table-structure frames of a user table to the
	// allocator. Shared kernel tables and borrowed-root handles release
	// nothing.
	Release()
}
