package addr

// Vpn is a virtual page number (virtual address divided by the page size).
type Vpn uint64

// Ppn is a physical page number.
type Ppn uint64

// VpnFromAddrFloor converts an address to the page number of the page that
// contains it, rounding toward zero.
func VpnFromAddrFloor(a Vaddr) Vpn { return Vpn(a >> PageShift) }

// VpnFromAddrCeil converts an address to a page number, rounding away from
// zero. For a page-aligned address the result equals VpnFromAddrFloor.
func VpnFromAddrCeil(a Vaddr) Vpn { return Vpn(a.AlignUpToPage() >> PageShift) }

// PpnFromAddrFloor converts a physical address to a page number, rounding
// toward zero.
func PpnFromAddrFloor(a Paddr) Ppn { return Ppn(a >> PageShift) }

// PpnFromAddrCeil converts a physical address to a page number, rounding
// away from zero.
func PpnFromAddrCeil(a Paddr) Ppn { return Ppn(a.AlignUpToPage() >> PageShift) }

// Step returns the next page number.
func (v Vpn) Step() Vpn { return v + 1 }

// StepBy returns the page number advanced by n pages.
func (v Vpn) StepBy(n uint64) Vpn { return v + Vpn(n) }

// StepBack returns the previous page number.
func (v Vpn) StepBack() Vpn { return v - 1 }

// StepBackBy returns the page number moved back by n pages.
func (v Vpn) StepBackBy(n uint64) Vpn { return v - Vpn(n) }

// StartAddr returns the first address of the page.
func (v Vpn) StartAddr() Vaddr { return Vaddr(v) << PageShift }

// EndAddr returns the first address past the page.
func (v Vpn) EndAddr() Vaddr { return Vaddr(v+1) << PageShift }

// Diff returns the signed page distance from other to v.
func (v Vpn) Diff(other Vpn) int64 { return int64(v) - int64(other) }

// Step returns the next page number.
func (p Ppn) Step() Ppn { return p + 1 }

// StepBy returns the page number advanced by n pages.
func (p Ppn) StepBy(n uint64) Ppn { return p + Ppn(n) }

// StepBack returns the previous page number.
func (p Ppn) StepBack() Ppn { return p - 1 }

// StepBackBy returns the page number moved back by n pages.
func (p Ppn) StepBackBy(n uint64) Ppn { return p - Ppn(n) }

// StartAddr returns the first address of the frame.
func (p Ppn) StartAddr() Paddr { return Paddr(p) << PageShift }

// EndAddr returns the first address past the frame.
func (p Ppn) EndAddr() Paddr { return Paddr(p+1) << PageShift }

// Diff returns the signed page distance from other to p.
func (p Ppn) Diff(other Ppn) int64 { return int64(p) - int64(other) }
