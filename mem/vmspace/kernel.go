package vmspace

import (
	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/pte"
)

// KernelSegment describes one identically-mapped kernel region.
type KernelSegment struct {
	Range      addr.PpnRange
	Type       AreaType
	Permission pte.Flag
}

// NewKernelSpace builds the shared kernel address space: every segment
// is mapped identically (vpn == ppn) so the kernel can address physical
// memory through the direct-map window. The builder must carry a
// factory producing a kernel table.
func NewKernelSpace(b Builder, segments []KernelSegment) (*MemorySpace, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}

	for _, seg := range segments {
		r := addr.NewVpnRange(
			addr.Vpn(seg.Range.Start), addr.Vpn(seg.Range.End))
		area := NewMappingArea(r, seg.Type, MapIdentical, seg.Permission)
		if err := s.InsertArea(area, nil); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}
