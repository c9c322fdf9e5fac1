package pte

import "github.com/polyarch/vmem/mem/addr"

// SV39 page-table entry format:
//
//	bits 0-7   flags (V R W X U G A D)
//	bits 8-9   reserved, must be zero
//	bits 10-53 physical page number
//	bits 54-63 reserved, must be zero
const (
	sv39FlagMask  uint64 = 0xff
	sv39PpnOffset        = 10
	sv39PpnMask   uint64 = 0x003f_ffff_ffff_fc00
)

// SV39FlagsFromUniversal packs universal flags into the SV39 flag bits.
// The low 8 bits of the universal set are the SV39 encoding; FlagHuge has
// no SV39 bit (leafness is positional) and is dropped.
func SV39FlagsFromUniversal(f Flag) uint64 {
	return uint64(f) & sv39FlagMask
}

// SV39FlagsToUniversal unpacks SV39 flag bits into the universal set.
func SV39FlagsToUniversal(bits uint64) Flag {
	return Flag(bits & sv39FlagMask)
}

// SV39Entry is one SV39 page-table entry.
type SV39Entry uint64

var _ Entry = (*SV39Entry)(nil)

// NewSV39Leaf builds a leaf entry mapping ppn with the given permissions.
// The valid bit is always set.
func NewSV39Leaf(ppn addr.Ppn, flags Flag) SV39Entry {
	bits := SV39FlagsFromUniversal(flags | FlagValid)
	return SV39Entry(uint64(ppn)<<sv39PpnOffset | bits)
}

// NewSV39Table builds an entry pointing at the next table level. Table
// entries carry only the valid bit; R/W/X stay clear so the walker keeps
// descending.
func NewSV39Table(ppn addr.Ppn) SV39Entry {
	return SV39Entry(uint64(ppn)<<sv39PpnOffset | uint64(FlagValid))
}

// Bits returns the raw hardware encoding.
func (e SV39Entry) Bits() uint64 { return uint64(e) }

// IsEmpty is true iff the raw value is all-zero.
func (e SV39Entry) IsEmpty() bool { return e == 0 }

// IsValid is true iff the V bit is set.
func (e SV39Entry) IsValid() bool { return uint64(e)&uint64(FlagValid) != 0 }

// IsLeaf is true if the entry has any of R/W/X, which SV39 defines as a
// leaf at any level.
func (e SV39Entry) IsLeaf() bool {
	return uint64(e)&uint64(FlagReadable|FlagWriteable|FlagExecutable) != 0
}

// Ppn returns the physical page number field.
func (e SV39Entry) Ppn() addr.Ppn {
	return addr.Ppn((uint64(e) & sv39PpnMask) >> sv39PpnOffset)
}

// Flags returns the flags field translated to the universal set.
func (e SV39Entry) Flags() Flag {
	return SV39FlagsToUniversal(uint64(e))
}

// SetPpn replaces the PPN field without touching the flags field.
func (e *SV39Entry) SetPpn(ppn addr.Ppn) {
	*e = SV39Entry(uint64(*e)&^sv39PpnMask | uint64(ppn)<<sv39PpnOffset)
}

// SetFlags replaces the flags field without touching the PPN field.
func (e *SV39Entry) SetFlags(flags Flag) {
	*e = SV39Entry(uint64(*e)&^sv39FlagMask | SV39FlagsFromUniversal(flags))
}

// AddFlags sets the given flags on top of the current ones.
func (e *SV39Entry) AddFlags(flags Flag) {
	e.SetFlags(e.Flags() | flags)
}

// RemoveFlags clears the given flags from the current ones.
func (e *SV39Entry) RemoveFlags(flags Flag) {
	e.SetFlags(e.Flags() &^ flags)
}

// ClearEntry zeroes the whole entry.
func (e *SV39Entry) ClearEntry() { *e = 0 }
