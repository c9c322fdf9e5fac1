package vmspace

import (
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
)

// MemorySpace is one process address space: a page table plus an
// ordered list of mapping areas. The space exclusively owns both; the
// areas exclusively own the frames they track. All mutation serializes
// through the space's lock.
type MemorySpace struct {
	sync.Mutex

	id           string
	table        paging.Table
	tableFactory func() (paging.Table, error)
	alloc        *phys.FrameAllocator
	mem          *phys.Memory
	areas        []*MappingArea

	heapStart    addr.Vaddr
	maxHeapBytes uint64
	brk          addr.Vaddr

	mmapWindow addr.VpnRange
	tracer     Tracer
}

// ID returns the unique identifier of the space.
func (s *MemorySpace) ID() string { return s.id }

// Table returns the page table of the space.
func (s *MemorySpace) Table() paging.Table { return s.table }

// Activate loads the space's page table on the bound core.
func (s *MemorySpace) Activate() {
	s.table.Activate()
}

// AreaCount returns the number of mapping areas.
func (s *MemorySpace) AreaCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.areas)
}

// AreaInfo is a read-only snapshot of one mapping area, for maps-style
// reporting.
type AreaInfo struct {
	Range       addr.VpnRange
	Type        AreaType
	MapType     MapType
	Permission  pte.Flag
	MappedPages int
}

// AreaInfos returns a snapshot of every mapping area in address order.
func (s *MemorySpace) AreaInfos() []AreaInfo {
	s.Lock()
	defer s.Unlock()

	infos := make([]AreaInfo, 0, len(s.areas))
	for _, a := range s.areas {
		infos = append(infos, AreaInfo{
			Range:       a.VpnRange(),
			Type:        a.AreaType(),
			MapType:     a.MapType(),
			Permission:  a.Permission(),
			MappedPages: a.MappedPages(),
		})
	}

	return infos
}

// CurrentBrk returns the current heap top.
func (s *MemorySpace) CurrentBrk() addr.Vaddr {
	s.Lock()
	defer s.Unlock()
	return s.brk
}

// InsertArea maps the area into the space and, if data is non-nil,
// loads it into the area's first pages. Used by the ELF-load path.
func (s *MemorySpace) InsertArea(area *MappingArea, data []byte) error {
	s.Lock()
	defer s.Unlock()

	if !s.rangeFree(area.VpnRange(), nil) {
		return fmt.Errorf("area %#x-%#x: %w",
			uint64(area.VpnRange().Start), uint64(area.VpnRange().End),
			paging.ErrAlreadyMapped)
	}

	if err := area.Map(s.table, s.alloc); err != nil {
		return err
	}
	if data != nil {
		if err := area.CopyData(s.table, s.mem, data); err != nil {
			area.Unmap(s.table)
			return err
		}
	}

	s.insertSorted(area)
	s.trace(Event{
		SpaceID: s.id,
		Kind:    EventMap,
		Vpn:     uint64(area.VpnRange().Start),
		Pages:   area.VpnRange().Len(),
		Perm:    area.Permission().String(),
	})

	return nil
}

// Mmap allocates a framed area of length bytes (rounded up to pages)
// with the given protection and returns its base address. A page-aligned
// non-zero hint is honored when the range is free; otherwise the mmap
// window is searched for the first sufficient gap.
func (s *MemorySpace) Mmap(
	hint addr.Vaddr,
	length uint64,
	perm pte.Flag,
) (addr.Vaddr, error) {
	s.Lock()
	defer s.Unlock()

	if length == 0 {
		return 0, fmt.Errorf("mmap of zero length: %w", paging.ErrInvalidAddress)
	}
	pages := uint64(addr.VpnFromAddrCeil(addr.Vaddr(length)))

	var hintVpn addr.Vpn
	if !hint.IsNull() && hint.IsPageAligned() {
		hintVpn = addr.VpnFromAddrFloor(hint)
	}

	base, ok := s.findGap(pages, hintVpn)
	if !ok {
		return 0, fmt.Errorf("mmap of %d pages: %w", pages, ErrNoVirtualSpace)
	}

	area := NewMappingArea(
		addr.VpnRangeFromStartLen(base, pages), AreaUserMmap, MapFramed, perm)
	if err := area.Map(s.table, s.alloc); err != nil {
		return 0, err
	}

	s.insertSorted(area)
	s.trace(Event{
		SpaceID: s.id,
		Kind:    EventMmap,
		Vpn:     uint64(base),
		Pages:   pages,
		Perm:    perm.String(),
	})

	return base.StartAddr(), nil
}

// Munmap unmaps [start, start+length), splitting any area the range
// falls strictly inside. Holes in the range are ignored, so unmapping
// twice succeeds.
func (s *MemorySpace) Munmap(start addr.Vaddr, length uint64) error {
	s.Lock()
	defer s.Unlock()

	if length == 0 {
		return fmt.Errorf("munmap of zero length: %w", paging.ErrInvalidAddress)
	}
	cut := addr.VpnRangeFromAddr(start, start.Add(length))

	next := make([]*MappingArea, 0, len(s.areas)+1)
	for _, area := range s.areas {
		inter, ok := area.VpnRange().Intersection(cut)
		if !ok {
			next = append(next, area)
			continue
		}

		for vpn := inter.Start; vpn < inter.End; vpn = vpn.Step() {
			area.UnmapOne(s.table, vpn)
		}

		if left := addr.NewVpnRange(area.VpnRange().Start, inter.Start); !left.IsEmpty() {
			next = append(next, area.shrinkTo(left))
		}
		if right := addr.NewVpnRange(inter.End, area.VpnRange().End); !right.IsEmpty() {
			next = append(next, area.shrinkTo(right))
		}
	}
	s.areas = next

	s.trace(Event{
		SpaceID: s.id,
		Kind:    EventMunmap,
		Vpn:     uint64(cut.Start),
		Pages:   cut.Len(),
	})

	return nil
}

// Brk moves the heap top to newTop, growing or shrinking the heap area.
// On failure the returned value is the unchanged current break; it is
// never lower than what was already handed out.
func (s *MemorySpace) Brk(newTop addr.Vaddr) (addr.Vaddr, error) {
	s.Lock()
	defer s.Unlock()

	cur := s.brk
	if s.heapStart.IsNull() {
		return cur, fmt.Errorf("no heap configured: %w", paging.ErrInvalidAddress)
	}
	if newTop < s.heapStart {
		return cur, fmt.Errorf("brk below heap start: %w", paging.ErrInvalidAddress)
	}
	if uint64(newTop.Diff(s.heapStart)) > s.maxHeapBytes {
		return cur, fmt.Errorf("brk beyond heap limit: %w", ErrNoVirtualSpace)
	}

	heapBase := addr.VpnFromAddrFloor(s.heapStart)
	curEnd := addr.VpnFromAddrCeil(cur)
	newEnd := addr.VpnFromAddrCeil(newTop)
	heap := s.findHeapArea(curEnd)

	switch {
	case newEnd > curEnd:
		if err := s.growHeap(heap, heapBase, curEnd, newEnd); err != nil {
			return cur, err
		}
	case newEnd < curEnd && heap != nil:
		s.shrinkHeap(heap, heapBase, newEnd)
	}

	s.brk = newTop
	s.trace(Event{
		SpaceID: s.id,
		Kind:    EventBrk,
		Vpn:     uint64(newEnd),
	})

	return newTop, nil
}

// CloneForFork produces a new space whose table and areas mirror this
// one. Frames are duplicated eagerly: every framed page of the child
// gets its own frame holding a byte copy of the parent's.
func (s *MemorySpace) CloneForFork() (*MemorySpace, error) {
	s.Lock()
	defer s.Unlock()

	childTable, err := s.tableFactory()
	if err != nil {
		return nil, err
	}

	child := &MemorySpace{
		id:           xid.New().String(),
		table:        childTable,
		tableFactory: s.tableFactory,
		alloc:        s.alloc,
		mem:          s.mem,
		heapStart:    s.heapStart,
		maxHeapBytes: s.maxHeapBytes,
		brk:          s.brk,
		mmapWindow:   s.mmapWindow,
		tracer:       s.tracer,
	}

	for _, area := range s.areas {
		if err := s.cloneAreaInto(child, area); err != nil {
			child.release()
			return nil, err
		}
	}

	s.trace(Event{SpaceID: child.id, Kind: EventFork})

	return child, nil
}

func (s *MemorySpace) cloneAreaInto(child *MemorySpace, area *MappingArea) error {
	meta := area.CloneMetadata()

	switch area.MapType() {
	case MapIdentical:
		if err := meta.Map(child.table, child.alloc); err != nil {
			return err
		}
	case MapFramed:
		r := area.VpnRange()
		for vpn := r.Start; vpn < r.End; vpn = vpn.Step() {
			src, mapped := area.frames[vpn]
			if !mapped {
				continue
			}
			if err := meta.MapOne(child.table, child.alloc, vpn); err != nil {
				meta.Unmap(child.table)
				return err
			}
			copy(s.mem.Page(meta.frames[vpn].Ppn()), s.mem.Page(src.Ppn()))
		}
	}

	child.areas = append(child.areas, meta)

	return nil
}

// Release unmaps every area, returns all owned frames, and releases the
// page table. The space must not be used afterwards.
func (s *MemorySpace) Release() {
	s.Lock()
	defer s.Unlock()
	s.release()
}

func (s *MemorySpace) release() {
	for _, area := range s.areas {
		area.Unmap(s.table)
	}
	s.areas = nil
	s.table.Release()
}

// WriteBytes writes data at va through the page table, splitting the
// write at page boundaries.
func (s *MemorySpace) WriteBytes(va addr.Vaddr, data []byte) error {
	s.Lock()
	defer s.Unlock()

	for off := 0; off < len(data); {
		cur := va.Add(uint64(off))
		ppn, _, _, err := s.table.Walk(addr.VpnFromAddrFloor(cur))
		if err != nil {
			return err
		}

		n := int(addr.PageSize - cur.PageOffset())
		if n > len(data)-off {
			n = len(data) - off
		}
		s.mem.Write(ppn.StartAddr().Add(cur.PageOffset()), data[off:off+n])
		off += n
	}

	return nil
}

// ReadBytes fills buf from va through the page table.
func (s *MemorySpace) ReadBytes(va addr.Vaddr, buf []byte) error {
	s.Lock()
	defer s.Unlock()

	for off := 0; off < len(buf); {
		cur := va.Add(uint64(off))
		ppn, _, _, err := s.table.Walk(addr.VpnFromAddrFloor(cur))
		if err != nil {
			return err
		}

		n := int(addr.PageSize - cur.PageOffset())
		if n > len(buf)-off {
			n = len(buf) - off
		}
		s.mem.Read(ppn.StartAddr().Add(cur.PageOffset()), buf[off:off+n])
		off += n
	}

	return nil
}

func (s *MemorySpace) growHeap(
	heap *MappingArea,
	heapBase, curEnd, newEnd addr.Vpn,
) error {
	growth := addr.NewVpnRange(curEnd, newEnd)
	if heap == nil {
		growth = addr.NewVpnRange(heapBase, newEnd)
	}
	if !s.rangeFree(growth, heap) {
		return fmt.Errorf("heap collides with another area: %w", ErrNoVirtualSpace)
	}

	if heap == nil {
		fresh := NewMappingArea(growth, AreaUserHeap, MapFramed, pte.UserRW())
		if err := mapPages(fresh, s.table, s.alloc, growth); err != nil {
			return err
		}
		s.insertSorted(fresh)
		return nil
	}

	grown := heap.shrinkTo(addr.NewVpnRange(heap.VpnRange().Start, newEnd))
	if err := mapPages(grown, s.table, s.alloc, growth); err != nil {
		restored := grown.shrinkTo(heap.VpnRange())
		s.replaceArea(heap, restored)
		return err
	}
	s.replaceArea(heap, grown)

	return nil
}

func (s *MemorySpace) shrinkHeap(heap *MappingArea, heapBase, newEnd addr.Vpn) {
	for vpn := newEnd; vpn < heap.VpnRange().End; vpn = vpn.Step() {
		heap.UnmapOne(s.table, vpn)
	}

	if newEnd <= heapBase {
		s.removeArea(heap)
		return
	}
	s.replaceArea(heap,
		heap.shrinkTo(addr.NewVpnRange(heap.VpnRange().Start, newEnd)))
}

func mapPages(
	a *MappingArea,
	table paging.Table,
	alloc *phys.FrameAllocator,
	r addr.VpnRange,
) error {
	for vpn := r.Start; vpn < r.End; vpn = vpn.Step() {
		if err := a.MapOne(table, alloc, vpn); err != nil {
			for undo := r.Start; undo < vpn; undo = undo.Step() {
				a.UnmapOne(table, undo)
			}
			return err
		}
	}

	return nil
}

// findHeapArea returns the heap area whose end matches the current
// break, or nil when no heap pages are mapped yet.
func (s *MemorySpace) findHeapArea(curEnd addr.Vpn) *MappingArea {
	for _, a := range s.areas {
		if a.AreaType() == AreaUserHeap && a.VpnRange().End == curEnd {
			return a
		}
	}

	return nil
}

// rangeFree reports whether no area other than skip overlaps r.
func (s *MemorySpace) rangeFree(r addr.VpnRange, skip *MappingArea) bool {
	for _, a := range s.areas {
		if a == skip {
			continue
		}
		if a.VpnRange().Overlaps(r) {
			return false
		}
	}

	return true
}

// findGap picks a base for a pages-long area: the hint when it is free
// inside the mmap window, otherwise the first sufficient gap.
func (s *MemorySpace) findGap(pages uint64, hint addr.Vpn) (addr.Vpn, bool) {
	if pages == 0 || pages > s.mmapWindow.Len() {
		return 0, false
	}

	if hint != 0 {
		want := addr.VpnRangeFromStartLen(hint, pages)
		if s.mmapWindow.ContainsRange(want) && s.rangeFree(want, nil) {
			return hint, true
		}
	}

	candidate := s.mmapWindow.Start
	for _, a := range s.areas {
		r := a.VpnRange()
		if r.End <= candidate || !r.Overlaps(s.mmapWindow) {
			continue
		}
		if r.Start >= candidate.StepBy(pages) {
			break
		}
		if r.End > candidate {
			candidate = r.End
		}
	}

	if candidate.StepBy(pages) > s.mmapWindow.End {
		return 0, false
	}

	return candidate, true
}

func (s *MemorySpace) insertSorted(area *MappingArea) {
	at := len(s.areas)
	for i, a := range s.areas {
		if area.VpnRange().Start < a.VpnRange().Start {
			at = i
			break
		}
	}

	s.areas = append(s.areas, nil)
	copy(s.areas[at+1:], s.areas[at:])
	s.areas[at] = area
}

func (s *MemorySpace) replaceArea(old, next *MappingArea) {
	for i, a := range s.areas {
		if a == old {
			s.areas[i] = next
			return
		}
	}
}

func (s *MemorySpace) removeArea(old *MappingArea) {
	for i, a := range s.areas {
		if a == old {
			s.areas = append(s.areas[:i], s.areas[i+1:]...)
			return
		}
	}
}

func (s *MemorySpace) trace(e Event) {
	if s.tracer != nil {
		s.tracer.RecordEvent(e)
	}
}
