package addr

// DirectMap describes an architecture's fixed linear-offset window through
// which kernel code reaches physical memory. Conversion through a DirectMap
// is only valid for addresses inside the window; user addresses go through
// page-table translation instead.
type DirectMap struct {
	// KernelBase is the virtual base of the direct-map window.
	KernelBase Vaddr
	// PaddrMask strips the window base from a direct-mapped virtual
	// address.
	PaddrMask uint64
}

// PaddrToVaddr returns the direct-mapped virtual alias of a physical
// address.
func (m DirectMap) PaddrToVaddr(p Paddr) Vaddr {
	return Vaddr(uint64(p)) | m.KernelBase
}

// VaddrToPaddr strips the window base from a direct-mapped virtual address.
func (m DirectMap) VaddrToPaddr(v Vaddr) Paddr {
	return Paddr(uint64(v) & m.PaddrMask)
}

// ContainsVaddr returns true if v lies inside the direct-map window.
func (m DirectMap) ContainsVaddr(v Vaddr) bool {
	return v&m.KernelBase == m.KernelBase
}

// IsDirectMapped returns true if the physical address round-trips through
// the window unchanged.
func (m DirectMap) IsDirectMapped(p Paddr) bool {
	return m.VaddrToPaddr(m.PaddrToVaddr(p)) == p
}
