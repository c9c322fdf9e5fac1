// Package pte defines the hardware-neutral page-table-entry flag set and
// the per-architecture entry codecs that pack it into native formats. The
// universal flag layout matches RISC-V SV39 in its lower 8 bits; other
// architectures translate through FromUniversal/ToUniversal.
package pte

import "strings"

// Flag is the universal page-table-entry flag set.
type Flag uint64

const (
	// FlagValid indicates the entry is valid.
	FlagValid Flag = 1 << 0
	// FlagReadable indicates the page is readable.
	FlagReadable Flag = 1 << 1
	// FlagWriteable indicates the page is writeable.
	FlagWriteable Flag = 1 << 2
	// FlagExecutable indicates the page is executable.
	FlagExecutable Flag = 1 << 3
	// FlagUserAccessible indicates the page is reachable from user mode.
	FlagUserAccessible Flag = 1 << 4
	// FlagGlobal indicates the mapping is present in every address space.
	FlagGlobal Flag = 1 << 5
	// FlagAccessed indicates the page has been accessed.
	FlagAccessed Flag = 1 << 6
	// FlagDirty indicates the page has been written to.
	FlagDirty Flag = 1 << 7
	// FlagHuge marks a leaf that maps more than one base page.
	FlagHuge Flag = 1 << 8
)

// Has returns true if every flag in f is set.
func (f Flag) Has(other Flag) bool { return f&other == other }

// HasAny returns true if at least one flag in other is set.
func (f Flag) HasAny(other Flag) bool { return f&other != 0 }

// Union returns the flags of f and other combined.
func (f Flag) Union(other Flag) Flag { return f | other }

// Clear returns f with the flags in other removed.
func (f Flag) Clear(other Flag) Flag { return f &^ other }

// UserRead is the flag set for user read-only access.
func UserRead() Flag { return FlagValid | FlagReadable | FlagUserAccessible }

// UserRW is the flag set for user read-write access.
func UserRW() Flag {
	return FlagValid | FlagReadable | FlagWriteable | FlagUserAccessible
}

// UserRX is the flag set for user read-execute access.
func UserRX() Flag {
	return FlagValid | FlagReadable | FlagExecutable | FlagUserAccessible
}

// KernelR is the flag set for kernel read-only access.
func KernelR() Flag { return FlagValid | FlagReadable }

// KernelRW is the flag set for kernel read-write access.
func KernelRW() Flag { return FlagValid | FlagReadable | FlagWriteable }

// KernelRX is the flag set for kernel read-execute access.
func KernelRX() Flag { return FlagValid | FlagReadable | FlagExecutable }

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagValid, "V"},
	{FlagReadable, "R"},
	{FlagWriteable, "W"},
	{FlagExecutable, "X"},
	{FlagUserAccessible, "U"},
	{FlagGlobal, "G"},
	{FlagAccessed, "A"},
	{FlagDirty, "D"},
	{FlagHuge, "H"},
}

func (f Flag) String() string {
	if f == 0 {
		return "-"
	}

	var sb strings.Builder
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			sb.WriteString(fn.name)
		}
	}
	return sb.String()
}
