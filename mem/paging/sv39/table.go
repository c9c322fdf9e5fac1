// Package sv39 implements the RISC-V SV39 three-level page table over
// the physical memory arena. Tables live in frames in their exact
// hardware encoding, so a walk here reads the same bits the MMU would.
package sv39

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

// Geometry of the SV39 translation scheme.
const (
	// Levels is the page-table depth.
	Levels = 3
	// MaxVaBits is the number of significant virtual address bits.
	MaxVaBits = 39
	// MaxPaBits is the number of significant physical address bits.
	MaxPaBits = 56

	entryBits = 9
	entryMask = (1 << entryBits) - 1
	vpnBits   = MaxVaBits - addr.PageShift
)

// DirectMap is the kernel window that maps all of physical memory at a
// fixed offset in the high half.
var DirectMap = addr.DirectMap{
	KernelBase: 0xffff_ffc0_0000_0000,
	PaddrMask:  0x0000_3fff_ffff_ffff,
}

// Table is an SV39 page table rooted in one physical frame. An owned
// table (built by the Builder) tracks its root and every intermediate
// table frame and returns them on Release; a handle built from a
// borrowed root owns nothing.
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

// Map installs a leaf for vpn.
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
	if target > 0 && e.IsValid() && !e.IsLeaf() {
		// A populated subtree sits where the huge leaf would go.
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrHugePageConflict)
	}
	if e.IsValid() {
		return fmt.Errorf("map vpn %#x: %w",
			uint64(vpn), paging.ErrAlreadyMapped)
	}

	t.setEntryAt(table, idx, pte.NewSV39Leaf(ppn, flags))

	return nil
}

// Unmap removes the leaf covering vpn and returns the physical page and
// size it mapped. The leaf is removed whole even if vpn points into the
// middle of a huge page.
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

// Mvmap retargets an existing mapping to a new physical page, replacing
// its permissions at the same time. A failed retarget leaves the
// existing mapping in place. The previous physical page is left
// untouched; ownership stays with the caller.
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
		t.setEntryAt(table, idx, pte.NewSV39Leaf(target, flags))
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

// UpdateFlags replaces the permission bits of the leaf covering vpn.
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

	e.SetFlags(flags | pte.FlagValid)
	t.setEntryAt(table, idx, e)

	return nil
}

// Walk is a read-only lookup of the leaf covering vpn.
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

	return e.Ppn(), sizeForLevel(level), e.Flags(), nil
}

// Translate resolves vaddr through the bound core's TLB, walking the
// table only on a miss and caching the result. A stale TLB entry wins
// over the table until it is invalidated.
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

// Activate loads the root into the bound core's satp model and flushes
// the core's TLB, mirroring the sfence.vma that brackets a satp write.
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

// Release returns the root and intermediate table frames of an owned
// table to the allocator. Frames mapped by leaves are untouched; their
// owners release them separately. Release panics if called twice.
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

// findLeaf walks down to the leaf covering vpn without allocating. It
// returns the table frame and index holding the leaf so callers can
// rewrite it in place.
func (t *Table) findLeaf(
	vpn addr.Vpn,
) (addr.Ppn, int, int, pte.SV39Entry, error) {
	if !canonicalVpn(vpn) {
		return 0, 0, 0, 0, paging.ErrInvalidAddress
	}

	cur := t.root
	for level := Levels - 1; level >= 0; level-- {
		idx := entryIndex(vpn, level)
		e := t.entryAt(cur, idx)

		switch {
		case !e.IsValid():
			return 0, 0, 0, 0, paging.ErrNotMapped
		case e.IsLeaf():
			return cur, idx, level, e, nil
		case level == 0:
			// Valid entry without R/W/X at the last level is a
			// malformed table, not a translation.
			return 0, 0, 0, 0, paging.ErrNotMapped
		}

		cur = e.Ppn()
	}

	panic("unreachable")
}

// ensurePath descends to the table that holds level target's entry for
// vpn, allocating and linking intermediate tables as needed.
func (t *Table) ensurePath(vpn addr.Vpn, target int) (addr.Ppn, error) {
	cur := t.root
	for level := Levels - 1; level > target; level-- {
		idx := entryIndex(vpn, level)
		e := t.entryAt(cur, idx)

		switch {
		case !e.IsValid():
			ft, ok := t.alloc.AllocFrame()
			if !ok {
				return 0, paging.ErrFrameAllocFailed
			}
			t.frames = append(t.frames, ft)
			t.setEntryAt(cur, idx, pte.NewSV39Table(ft.Ppn()))
			cur = ft.Ppn()
		case e.IsLeaf():
			return 0, paging.ErrHugePageConflict
		default:
			cur = e.Ppn()
		}
	}

	return cur, nil
}

func (t *Table) entryAt(table addr.Ppn, idx int) pte.SV39Entry {
	return pte.SV39Entry(t.mem.Word(table, idx))
}

func (t *Table) setEntryAt(table addr.Ppn, idx int, e pte.SV39Entry) {
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
// extension of bit MaxVaBits-1, as SV39 requires.
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
