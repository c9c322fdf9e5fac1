package addr

import "fmt"

// VpnRange is a half-open range [Start, End) of virtual page numbers. A
// range is a plain value; iterating it is a for loop from Start to End and
// is restartable.
type VpnRange struct {
	Start Vpn
	End   Vpn
}

// NewVpnRange creates a range from its bounds. It panics if the bounds are
// out of order.
func NewVpnRange(start, end Vpn) VpnRange {
	if end < start {
		panic(fmt.Sprintf("vpn range out of order: [%#x, %#x)", start, end))
	}
	return VpnRange{Start: start, End: end}
}

// VpnRangeFromStartLen creates a range of n pages starting at start.
func VpnRangeFromStartLen(start Vpn, n uint64) VpnRange {
	return VpnRange{Start: start, End: start.StepBy(n)}
}

// VpnRangeFromAddr creates the page range that covers [start, end) of the
// address space, widening to page boundaries.
func VpnRangeFromAddr(start, end Vaddr) VpnRange {
	return NewVpnRange(VpnFromAddrFloor(start), VpnFromAddrCeil(end))
}

// Len returns the number of pages in the range.
func (r VpnRange) Len() uint64 { return uint64(r.End) - uint64(r.Start) }

// IsEmpty returns true if the range covers no pages.
func (r VpnRange) IsEmpty() bool { return r.Start == r.End }

// Contains returns true if vpn falls inside the range.
func (r VpnRange) Contains(vpn Vpn) bool { return vpn >= r.Start && vpn < r.End }

// ContainsRange returns true if other lies entirely inside the range.
func (r VpnRange) ContainsRange(other VpnRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps returns true if the two ranges share at least one page.
// Adjacent ranges do not overlap.
func (r VpnRange) Overlaps(other VpnRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Intersection returns the overlapping part of the two ranges and whether
// such a part exists.
func (r VpnRange) Intersection(other VpnRange) (VpnRange, bool) {
	if !r.Overlaps(other) {
		return VpnRange{}, false
	}
	out := r
	if other.Start > out.Start {
		out.Start = other.Start
	}
	if other.End < out.End {
		out.End = other.End
	}
	return out, true
}

// PpnRange is a half-open range [Start, End) of physical page numbers.
type PpnRange struct {
	Start Ppn
	End   Ppn
}

// NewPpnRange creates a range from its bounds. It panics if the bounds are
// out of order.
func NewPpnRange(start, end Ppn) PpnRange {
	if end < start {
		panic(fmt.Sprintf("ppn range out of order: [%#x, %#x)", start, end))
	}
	return PpnRange{Start: start, End: end}
}

// PpnRangeFromStartLen creates a range of n frames starting at start.
func PpnRangeFromStartLen(start Ppn, n uint64) PpnRange {
	return PpnRange{Start: start, End: start.StepBy(n)}
}

// Len returns the number of frames in the range.
func (r PpnRange) Len() uint64 { return uint64(r.End) - uint64(r.Start) }

// IsEmpty returns true if the range covers no frames.
func (r PpnRange) IsEmpty() bool { return r.Start == r.End }

// Contains returns true if ppn falls inside the range.
func (r PpnRange) Contains(ppn Ppn) bool { return ppn >= r.Start && ppn < r.End }
