// Package la64 implements the LoongArch64 four-level page table over
// the physical memory arena.
//
// LoongArch directory entries carry no valid bit: a directory slot is a
// bare next-level address, present iff non-zero, which is how the LDDIR
// instruction reads them. Leaves carry the software present bit, and
// huge leaves at directory levels are tagged with the software huge bit.
package la64

import (
	"errors"
	"fmt"
	"sync"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
	"github.com/polyarch/vmem/mem/tlb"
)

// Geometry of the LoongArch64 translation scheme.
const (
	// Levels is the page-table depth.
	Levels = 4
	// MaxVaBits is the number of significant virtual address bits.
	MaxVaBits = 48
	// MaxPaBits is the number of significant physical address bits.
	MaxPaBits = 48

	entryBits = 9
	entryMask = (1 << entryBits) - 1
	vpnBits   = MaxVaBits - addr.PageShift
)

// DirectMap is the cached direct-map window (DMW) covering all of
// physical memory.
var DirectMap = addr.DirectMap{
	KernelBase: 0x9000_0000_0000_0000,
	PaddrMask:  0x0000_ffff_ffff_ffff,
}

// Table is a LoongArch64 page table rooted in one physical frame.
type Table struct {
	sync.Mutex

	mem   *phys.Memory
	alloc *phys.FrameAllocator
	core  *paging.Core

	root     addr.Ppn
	frames   []*phys.FrameTracker
	isUser   bool
	released bool
}

var _ paging.Table = (*Table)(nil)

// RootPpn returns the frame holding the root table.
func (t *Table) RootPpn() addr.Ppn { return t.root }

// IsUserTable reports whether this table belongs to a user space.
func (t *Table) IsUserTable() bool { return t.isUser }

// Levels returns the table depth.
func (t *Table) Levels() int { return Levels }

// MaxVaBits returns the number of significant virtual address bits.
func (t *Table) MaxVaBits() int { return MaxVaBits }

// MaxPaBits returns the number of significant physical address bits.
func (t *Table) MaxPaBits() int { return MaxPaBits }

// Map installs a leaf for vpn. Leaves above the base level carry the
// software huge tag so the walker can tell them from directory slots.
func (t *Table) Map(
	vpn addr.Vpn,
	ppn addr.Ppn,
	size paging.PageSize,
	flags pte.Flag,
) error {
	t.Lock()
	defer t.Unlock()

	return t.mapPage(vpn, ppn, size, flags)
}

func (t *Table) mapPage(
	vpn addr.Vpn,
	ppn addr.Ppn,
	size paging.PageSize,
	flags pte.Flag,
) error {
	if err := checkLeafArgs(vpn, ppn, size, flags); err != nil {
		return err
	}

	target := levelForSize(size)
	table, err := t.ensurePath(vpn, target)
	if err != nil {
		return fmt.Errorf("map vpn %#x: %w", uint64(vpn), err)
	}

	idx := entryIndex(vpn, target)
	e := t.entryAt(table, idx)
	if target > 0 && !e.IsEmpty() && !e.IsHuge() {
		// A populated subtree sits where the huge leaf would go.
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrHugePageConflict)
	}
	if e.IsValid() {
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrAlreadyMapped)
	}

	if target > 0 {
		flags = flags.Union(pte.FlagHuge)
	}
	t.setEntryAt(table, idx, pte.NewLA64Leaf(ppn, flags))

	return nil
}

// Unmap removes the leaf covering vpn and returns the physical page and
// size it mapped.
func (t *Table) Unmap(vpn addr.Vpn) (addr.Ppn, paging.PageSize, error) {
	t.Lock()
	defer t.Unlock()

	return t.unmapPage(vpn)
}

func (t *Table) unmapPage(vpn addr.Vpn) (addr.Ppn, paging.PageSize, error) {
	table, idx, level, e, err := t.findLeaf(vpn)
	if err != nil {
		return 0, 0, fmt.Errorf("unmap vpn %#x: %w", uint64(vpn), err)
	}

	t.setEntryAt(table, idx, 0)

	return e.Ppn(), sizeForLevel(level), nil
}

// Mvmap retargets an existing mapping to a new physical page. A failed
// retarget leaves the existing mapping in place.
func (t *Table) Mvmap(
	vpn addr.Vpn,
	target addr.Ppn,
	size paging.PageSize,
	flags pte.Flag,
) error {
	t.Lock()
	defer t.Unlock()

	if err := checkLeafArgs(vpn, target, size, flags); err != nil {
		return err
	}

	table, idx, level, old, err := t.findLeaf(vpn)
	if err != nil {
		return fmt.Errorf("mvmap vpn %#x: %w", uint64(vpn), err)
	}

	if levelForSize(size) == level {
		if level > 0 {
			flags = flags.Union(pte.FlagHuge)
		}
		t.setEntryAt(table, idx, pte.NewLA64Leaf(target, flags))

		return nil
	}

	// The leaf moves to a different level: clear the old slot so the
	// new path can be built through it, restoring it on failure.
	t.setEntryAt(table, idx, 0)
	if err := t.mapPage(vpn, target, size, flags); err != nil {
		t.setEntryAt(table, idx, old)
		return err
	}

	return nil
}

// UpdateFlags replaces the permission bits of the leaf covering vpn,
// preserving its huge tag.
func (t *Table) UpdateFlags(vpn addr.Vpn, flags pte.Flag) error {
	t.Lock()
	defer t.Unlock()

	return t.updateLeafFlags(vpn, flags)
}

func (t *Table) updateLeafFlags(vpn addr.Vpn, flags pte.Flag) error {
	if !flags.HasAny(pte.FlagReadable | pte.FlagWriteable | pte.FlagExecutable) {
		return fmt.Errorf("update vpn %#x: %w",
			uint64(vpn), paging.ErrInvalidFlags)
	}

	table, idx, _, e, err := t.findLeaf(vpn)
	if err != nil {
		return fmt.Errorf("update vpn %#x: %w", uint64(vpn), err)
	}

	next := flags | pte.FlagValid
	if e.IsHuge() {
		next |= pte.FlagHuge
	}
	e.SetFlags(next)
	t.setEntryAt(table, idx, e)

	return nil
}

// Walk is a read-only lookup of the leaf covering vpn. The huge tag is
// not reported; the returned size carries that information.
func (t *Table) Walk(
	vpn addr.Vpn,
) (addr.Ppn, paging.PageSize, pte.Flag, error) {
	t.Lock()
	defer t.Unlock()

	return t.walkLeaf(vpn)
}

func (t *Table) walkLeaf(
	vpn addr.Vpn,
) (addr.Ppn, paging.PageSize, pte.Flag, error) {
	_, _, level, e, err := t.findLeaf(vpn)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("walk vpn %#x: %w", uint64(vpn), err)
	}

	return e.Ppn(), sizeForLevel(level), e.Flags().Clear(pte.FlagHuge), nil
}

// Translate resolves vaddr through the bound core's TLB, walking the
// table only on a miss and caching the result.
func (t *Table) Translate(vaddr addr.Vaddr) (addr.Paddr, bool) {
	vpn := addr.VpnFromAddrFloor(vaddr)

	if e, ok := t.core.TLB().Lookup(vpn); ok {
		return e.Ppn.StartAddr().Add(vaddr.PageOffset()), true
	}

	leafPpn, size, flags, err := t.Walk(vpn)
	if err != nil {
		return 0, false
	}

	sub := leafPpn.StepBy(uint64(vpn) & (size.Pages() - 1))
	t.core.TLB().Add(tlb.Entry{
		Vpn:       vpn,
		Ppn:       sub,
		Flags:     flags,
		PageBytes: uint64(size),
	})

	return sub.StartAddr().Add(vaddr.PageOffset()), true
}

// MapRange maps r to the contiguous physical run starting at startPpn.
func (t *Table) MapRange(
	r addr.VpnRange,
	startPpn addr.Ppn,
	size paging.PageSize,
	flags pte.Flag,
) error {
	t.Lock()
	defer t.Unlock()

	step := size.Pages()
	vpn, ppn := r.Start, startPpn
	for vpn < r.End {
		if err := t.mapPage(vpn, ppn, size, flags); err != nil {
			return err
		}
		vpn = vpn.StepBy(step)
		ppn = ppn.StepBy(step)
	}

	return nil
}

// UnmapRange unmaps every mapped page in r, skipping holes.
func (t *Table) UnmapRange(r addr.VpnRange) error {
	t.Lock()
	defer t.Unlock()

	vpn := r.Start
	for vpn < r.End {
		_, size, err := t.unmapPage(vpn)
		if err != nil {
			if errors.Is(err, paging.ErrNotMapped) {
				vpn = vpn.Step()
				continue
			}
			return err
		}

		pages := size.Pages()
		base := vpn.StepBackBy(uint64(vpn) % pages)
		vpn = base.StepBy(pages)
	}

	return nil
}

// UpdateFlagsRange applies the new permissions to every leaf in r.
func (t *Table) UpdateFlagsRange(r addr.VpnRange, flags pte.Flag) error {
	t.Lock()
	defer t.Unlock()

	vpn := r.Start
	for vpn < r.End {
		_, size, _, err := t.walkLeaf(vpn)
		if err != nil {
			return err
		}
		if err := t.updateLeafFlags(vpn, flags); err != nil {
			return err
		}

		pages := size.Pages()
		base := vpn.StepBackBy(uint64(vpn) % pages)
		vpn = base.StepBy(pages)
	}

	return nil
}

// Activate loads the root into the bound core's page-global-directory
// model and flushes the core's TLB, as invtlb would after a PGD switch.
func (t *Table) Activate() {
	t.core.SetRoot(t.root)
	t.core.TLB().Flush()
}

// FlushTLB invalidates the bound core's cached translation for vpn.
func (t *Table) FlushTLB(vpn addr.Vpn) {
	t.core.TLB().Invalidate(vpn)
}

// FlushTLBAll invalidates every cached translation on the bound core.
func (t *Table) FlushTLBAll() {
	t.core.TLB().Flush()
}

// Release returns the root and directory frames of an owned table to
// the allocator. Release panics if called twice.
func (t *Table) Release() {
	t.Lock()
	defer t.Unlock()

	if t.released {
		panic("page table released twice")
	}
	t.released = true

	for _, f := range t.frames {
		f.Release()
	}
	t.frames = nil
}

// findLeaf walks down to the leaf covering vpn without allocating.
// Directory slots are present iff non-zero; a present slot with the
// huge tag is a leaf, anything else is a next-level pointer.
func (t *Table) findLeaf(
	vpn addr.Vpn,
) (addr.Ppn, int, int, pte.LA64Entry, error) {
	if !canonicalVpn(vpn) {
		return 0, 0, 0, 0, paging.ErrInvalidAddress
	}

	cur := t.root
	for level := Levels - 1; level > 0; level-- {
		idx := entryIndex(vpn, level)
		e := t.entryAt(cur, idx)

		switch {
		case e.IsEmpty():
			return 0, 0, 0, 0, paging.ErrNotMapped
		case e.IsHuge():
			if level > 2 {
				// No hardware page size this large.
				return 0, 0, 0, 0, paging.ErrNotMapped
			}
			return cur, idx, level, e, nil
		}

		cur = e.Ppn()
	}

	idx := entryIndex(vpn, 0)
	e := t.entryAt(cur, idx)
	if !e.IsValid() {
		return 0, 0, 0, 0, paging.ErrNotMapped
	}

	return cur, idx, 0, e, nil
}

// ensurePath descends to the table that holds level target's entry for
// vpn, allocating and linking directory frames as needed.
func (t *Table) ensurePath(vpn addr.Vpn, target int) (addr.Ppn, error) {
	cur := t.root
	for level := Levels - 1; level > target; level-- {
		idx := entryIndex(vpn, level)
		e := t.entryAt(cur, idx)

		switch {
		case e.IsEmpty():
			ft, ok := t.alloc.AllocFrame()
			if !ok {
				return 0, paging.ErrFrameAllocFailed
			}
			t.frames = append(t.frames, ft)
			t.setEntryAt(cur, idx, pte.NewLA64Table(ft.Ppn()))
			cur = ft.Ppn()
		case e.IsHuge():
			return 0, paging.ErrHugePageConflict
		default:
			cur = e.Ppn()
		}
	}

	return cur, nil
}

func (t *Table) entryAt(table addr.Ppn, idx int) pte.LA64Entry {
	return pte.LA64Entry(t.mem.Word(table, idx))
}

func (t *Table) setEntryAt(table addr.Ppn, idx int, e pte.LA64Entry) {
	t.mem.SetWord(table, idx, e.Bits())
}

func checkLeafArgs(
	vpn addr.Vpn,
	ppn addr.Ppn,
	size paging.PageSize,
	flags pte.Flag,
) error {
	if !flags.HasAny(pte.FlagReadable | pte.FlagWriteable | pte.FlagExecutable) {
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrInvalidFlags)
	}
	if !size.IsValid() || !canonicalVpn(vpn) ||
		uint64(vpn)%size.Pages() != 0 || uint64(ppn)%size.Pages() != 0 {
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrInvalidAddress)
	}

	return nil
}

// canonicalVpn checks that the address bits above MaxVaBits are a sign
// extension of bit MaxVaBits-1.
func canonicalVpn(vpn addr.Vpn) bool {
	ext := int64(uint64(vpn)<<(64-vpnBits)) >> (64 - vpnBits)
	return addr.Vpn(uint64(ext)) == vpn
}

func entryIndex(vpn addr.Vpn, level int) int {
	return int(uint64(vpn)>>(entryBits*level)) & entryMask
}

func levelForSize(size paging.PageSize) int {
	switch size {
	case paging.Size1G:
		return 2
	case paging.Size2M:
		return 1
	default:
		return 0
	}
}

func sizeForLevel(level int) paging.PageSize {
	switch level {
	case 2:
		return paging.Size1G
	case 1:
		return paging.Size2M
	default:
		return paging.Size4K
	}
}
