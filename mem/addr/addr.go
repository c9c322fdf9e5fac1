// Package addr defines the typed address and page-number model shared by
// every architecture backend. Virtual and physical addresses are distinct
// types and never interconvertible except through a DirectMap window or a
// page-table translation.
package addr

const (
	// PageSize is the base page size in bytes.
	PageSize = 4096
	// PageShift is log2(PageSize).
	PageShift = 12
	// PageMask selects the in-page offset bits of an address.
	PageMask = PageSize - 1
)

// Vaddr is a virtual address.
type Vaddr uint64

// Paddr is a physical address.
type Paddr uint64

// IsNull returns true if the address is zero.
func (a Vaddr) IsNull() bool { return a == 0 }

// PageOffset returns the offset of the address within its page.
func (a Vaddr) PageOffset() uint64 { return uint64(a) & PageMask }

// AlignDownToPage rounds the address down to the nearest page boundary.
func (a Vaddr) AlignDownToPage() Vaddr { return a &^ PageMask }

// AlignUpToPage rounds the address up to the nearest page boundary.
func (a Vaddr) AlignUpToPage() Vaddr { return (a + PageMask) &^ PageMask }

// IsPageAligned returns true if the address is page aligned.
func (a Vaddr) IsPageAligned() bool { return a.PageOffset() == 0 }

// Add returns the address advanced by n bytes.
func (a Vaddr) Add(n uint64) Vaddr { return a + Vaddr(n) }

// Sub returns the address moved back by n bytes.
func (a Vaddr) Sub(n uint64) Vaddr { return a - Vaddr(n) }

// Diff returns the signed byte distance from other to a.
func (a Vaddr) Diff(other Vaddr) int64 { return int64(a) - int64(other) }

// IsNull returns true if the address is zero.
func (a Paddr) IsNull() bool { return a == 0 }

// PageOffset returns the offset of the address within its page.
func (a Paddr) PageOffset() uint64 { return uint64(a) & PageMask }

// AlignDownToPage rounds the address down to the nearest page boundary.
func (a Paddr) AlignDownToPage() Paddr { return a &^ PageMask }

// AlignUpToPage rounds the address up to the nearest page boundary.
func (a Paddr) AlignUpToPage() Paddr { return (a + PageMask) &^ PageMask }

// IsPageAligned returns true if the address is page aligned.
func (a Paddr) IsPageAligned() bool { return a.PageOffset() == 0 }

// Add returns the address advanced by n bytes.
func (a Paddr) Add(n uint64) Paddr { return a + Paddr(n) }

// Sub returns the address moved back by n bytes.
func (a Paddr) Sub(n uint64) Paddr { return a - Paddr(n) }

// Diff returns the signed byte distance from other to a.
func (a Paddr) Diff(other Paddr) int64 { return int64(a) - int64(other) }
