package pte

import "github.com/polyarch/vmem/mem/addr"

// Entry is the read/write surface every architecture's 64-bit page-table
// entry provides. The PPN field and the flags field never overlap: SetPpn
// leaves the flags untouched and SetFlags leaves the PPN untouched.
type Entry interface {
	// Bits returns the raw hardware encoding.
	Bits() uint64
	// IsEmpty is true iff the raw value is all-zero.
	IsEmpty() bool
	// IsValid is true iff the entry carries the architecture's valid bit.
	IsValid() bool
	// IsLeaf is true if the entry maps a page rather than pointing at the
	// next table level.
	IsLeaf() bool
	// Ppn returns the physical page number field.
	Ppn() addr.Ppn
	// Flags returns the flags field translated to the universal set.
	Flags() Flag

	SetPpn(ppn addr.Ppn)
	SetFlags(flags Flag)
	AddFlags(flags Flag)
	RemoveFlags(flags Flag)
	ClearEntry()
}
