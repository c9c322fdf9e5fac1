package pte

import "github.com/polyarch/vmem/mem/addr"

// LoongArch64 page-table entry format (TLBELO layout):
//
//	bit 0      V      valid/accessed
//	bit 1      D      dirty (hardware write enable)
//	bits 2-3   PLV    privilege level (0 kernel, 3 user)
//	bits 4-5   MAT    memory access type
//	bit 6      G      global
//	bit 7      P      software present
//	bit 8      W      software write permission
//	bit 9      M      software modified
//	bit 10     -      software prot-none
//	bit 11     HUGE   software huge-leaf tag
//	bits 12-47 PPN
//	bit 61     NR     non-readable (inverted)
//	bit 62     NX     non-executable (inverted)
//	bit 63     RPLV   restricted privilege level
const (
	la64Valid    uint64 = 1 << 0
	la64Dirty    uint64 = 1 << 1
	la64PLVShift        = 2
	la64PLVMask  uint64 = 0b11 << la64PLVShift
	la64PLV3     uint64 = 0b11 << la64PLVShift
	la64MatCC    uint64 = 1 << 4
	la64Global   uint64 = 1 << 6
	la64Present  uint64 = 1 << 7
	la64Write    uint64 = 1 << 8
	la64Modified uint64 = 1 << 9
	la64Huge     uint64 = 1 << 11
	la64NR       uint64 = 1 << 61
	la64NX       uint64 = 1 << 62

	la64PpnOffset        = 12
	la64PpnMask   uint64 = 0x0000_ffff_ffff_f000
	la64FlagMask  uint64 = 0xfff | 0xe000_0000_0000_0000
)

// LA64FlagsFromUniversal packs universal flags into the LoongArch bits.
// There is no single user bit: FlagUserAccessible becomes PLV=3 in the
// 2-bit privilege field. Readability and executability are inverted (NR,
// NX). A writeable page gets both W and D, since D doubles as the hardware
// write enable; the software M bit carries the architectural dirty state.
// FlagAccessed has no LoongArch bit (V doubles as accessed) and is
// dropped.
func LA64FlagsFromUniversal(f Flag) uint64 {
	var bits uint64

	if f.Has(FlagValid) {
		bits |= la64Present | la64Valid | la64MatCC
	}
	if !f.Has(FlagReadable) {
		bits |= la64NR
	}
	if f.Has(FlagWriteable) {
		bits |= la64Write | la64Dirty
	}
	if !f.Has(FlagExecutable) {
		bits |= la64NX
	}
	if f.Has(FlagUserAccessible) {
		bits |= la64PLV3
	}
	if f.Has(FlagGlobal) {
		bits |= la64Global
	}
	if f.Has(FlagDirty) {
		bits |= la64Modified | la64Dirty
	}
	if f.Has(FlagHuge) {
		bits |= la64Huge
	}

	return bits
}

// LA64FlagsToUniversal unpacks LoongArch bits into the universal set.
func LA64FlagsToUniversal(bits uint64) Flag {
	var f Flag

	if bits&la64Present != 0 {
		f |= FlagValid
	}
	if bits&la64NR == 0 {
		f |= FlagReadable
	}
	if bits&la64Write != 0 {
		f |= FlagWriteable
	}
	if bits&la64NX == 0 {
		f |= FlagExecutable
	}
	if bits&la64PLVMask == la64PLV3 {
		f |= FlagUserAccessible
	}
	if bits&la64Global != 0 {
		f |= FlagGlobal
	}
	if bits&la64Modified != 0 {
		f |= FlagDirty
	}
	if bits&la64Huge != 0 {
		f |= FlagHuge
	}

	return f
}

// LA64Entry is one LoongArch64 page-table entry.
type LA64Entry uint64

var _ Entry = (*LA64Entry)(nil)

// NewLA64Leaf builds a leaf entry mapping ppn with the given permissions.
func NewLA64Leaf(ppn addr.Ppn, flags Flag) LA64Entry {
	bits := LA64FlagsFromUniversal(flags | FlagValid)
	return LA64Entry(uint64(ppn)<<la64PpnOffset | bits)
}

// NewLA64Table builds an entry pointing at the next table level. LoongArch
// directory entries store only the next-level address; the walker treats a
// non-zero directory entry as present, matching LDDIR semantics.
func NewLA64Table(ppn addr.Ppn) LA64Entry {
	return LA64Entry(uint64(ppn) << la64PpnOffset)
}

// Bits returns the raw hardware encoding.
func (e LA64Entry) Bits() uint64 { return uint64(e) }

// IsEmpty is true iff the raw value is all-zero.
func (e LA64Entry) IsEmpty() bool { return e == 0 }

// IsValid is true iff the software present bit is set.
func (e LA64Entry) IsValid() bool { return uint64(e)&la64Present != 0 }

// IsLeaf is true for valid entries; directory entries never carry the
// present bit on LoongArch.
func (e LA64Entry) IsLeaf() bool { return e.IsValid() }

// IsHuge is true if the software huge tag is set.
func (e LA64Entry) IsHuge() bool { return uint64(e)&la64Huge != 0 }

// Ppn returns the physical page number field.
func (e LA64Entry) Ppn() addr.Ppn {
	return addr.Ppn((uint64(e) & la64PpnMask) >> la64PpnOffset)
}

// Flags returns the flags field translated to the universal set.
func (e LA64Entry) Flags() Flag {
	return LA64FlagsToUniversal(uint64(e) & la64FlagMask)
}

// SetPpn replaces the PPN field without touching the flags field.
func (e *LA64Entry) SetPpn(ppn addr.Ppn) {
	*e = LA64Entry(uint64(*e)&^la64PpnMask | uint64(ppn)<<la64PpnOffset)
}

// SetFlags replaces the flags field without touching the PPN field.
func (e *LA64Entry) SetFlags(flags Flag) {
	*e = LA64Entry(uint64(*e)&^la64FlagMask |
		LA64FlagsFromUniversal(flags)&la64FlagMask)
}

// AddFlags sets the given flags on top of the current ones.
func (e *LA64Entry) AddFlags(flags Flag) {
	e.SetFlags(e.Flags() | flags)
}

// RemoveFlags clears the given flags from the current ones.
func (e *LA64Entry) RemoveFlags(flags Flag) {
	e.SetFlags(e.Flags() &^ flags)
}

// ClearEntry zeroes the whole entry.
func (e *LA64Entry) ClearEntry() { *e = 0 }
