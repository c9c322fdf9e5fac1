package la64

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
)

var _ = Describe("Table", func() {
	var (
		alloc *phys.FrameAllocator
		core  *paging.Core
		table *Table
	)

	BeforeEach(func() {
		mem := phys.MakeBuilder().
			WithBasePaddr(0x9000_0000).
			WithNumFrames(256).
			Build()
		alloc = phys.NewFrameAllocator(mem)
		core = paging.NewCore(0, nil)

		var err error
		table, err = MakeBuilder().
			WithAllocator(alloc).
			WithCore(core).
			Build()
		Expect(err).ToNot(HaveOccurred())
	})

	It("maps a page and walks it back", func() {
		err := table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())
		Expect(err).ToNot(HaveOccurred())

		ppn, size, flags, err := table.Walk(0x10)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90123)))
		Expect(size).To(Equal(paging.Size4K))
		Expect(flags.Has(pte.FlagReadable)).To(BeTrue())
		Expect(flags.Has(pte.FlagWriteable)).To(BeTrue())
		Expect(flags.Has(pte.FlagHuge)).To(BeFalse())
	})

	It("spends three directory frames on the first base-page map", func() {
		free0 := alloc.FreeCount()

		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		Expect(alloc.FreeCount()).To(Equal(free0 - 3))
	})

	It("rejects a double map", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		err := table.Map(0x10, 0x90999, paging.Size4K, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrAlreadyMapped))
	})

	It("rejects a leaf without any permission", func() {
		err := table.Map(0x10, 0x90123, paging.Size4K, pte.FlagValid)
		Expect(err).To(MatchError(paging.ErrInvalidFlags))
	})

	It("rejects a non-canonical address", func() {
		err := table.Map(1<<36, 0x90123, paging.Size4K, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrInvalidAddress))
	})

	It("unmaps and reports what was mapped", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		ppn, size, err := table.Unmap(0x10)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90123)))
		Expect(size).To(Equal(paging.Size4K))

		_, _, _, err = table.Walk(0x10)
		Expect(err).To(MatchError(paging.ErrNotMapped))
	})

	It("fails to unmap a hole", func() {
		_, _, err := table.Unmap(0x10)
		Expect(err).To(MatchError(paging.ErrNotMapped))
	})

	It("maps a 2M page as a tagged directory-level leaf", func() {
		Expect(table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		ppn, size, flags, err := table.Walk(0x234)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90200)))
		Expect(size).To(Equal(paging.Size2M))
		Expect(flags.Has(pte.FlagHuge)).To(BeFalse(),
			"size carries hugeness, flags stay uniform across sizes")
	})

	It("maps a 1G page two levels up", func() {
		Expect(table.Map(0x4_0000, 0x8_0000, paging.Size1G, pte.UserRead())).
			To(Succeed())

		ppn, size, _, err := table.Walk(0x4_1234)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x8_0000)))
		Expect(size).To(Equal(paging.Size1G))
	})

	It("refuses a 4K map under a huge leaf", func() {
		Expect(table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		err := table.Map(0x234, 0x90999, paging.Size4K, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrHugePageConflict))
	})

	It("refuses a huge map over an existing subtree", func() {
		Expect(table.Map(0x234, 0x90999, paging.Size4K, pte.UserRW())).
			To(Succeed())

		err := table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrHugePageConflict))
	})

	It("retargets a mapping with Mvmap", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		err := table.Mvmap(0x10, 0x90456, paging.Size4K, pte.UserRead())
		Expect(err).ToNot(HaveOccurred())

		ppn, _, flags, err := table.Walk(0x10)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90456)))
		Expect(flags.Has(pte.FlagWriteable)).To(BeFalse())
	})

	It("keeps the old mapping when Mvmap gets bad flags", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		err := table.Mvmap(0x10, 0x90456, paging.Size4K, pte.FlagValid)
		Expect(err).To(MatchError(paging.ErrInvalidFlags))

		ppn, _, _, err := table.Walk(0x10)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90123)))
	})

	It("retargets a huge mapping in place", func() {
		Expect(table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		Expect(table.Mvmap(0x200, 0x90400, paging.Size2M, pte.UserRead())).
			To(Succeed())

		ppn, size, flags, err := table.Walk(0x234)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90400)))
		Expect(size).To(Equal(paging.Size2M))
		Expect(flags.Has(pte.FlagWriteable)).To(BeFalse())
	})

	It("keeps the old mapping when Mvmap cannot build the new path", func() {
		tinyMem := phys.MakeBuilder().
			WithBasePaddr(0x9000_0000).
			WithNumFrames(3).
			Build()
		tinyAlloc := phys.NewFrameAllocator(tinyMem)

		tiny, err := MakeBuilder().
			WithAllocator(tinyAlloc).
			WithCore(core).
			Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(tiny.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		err = tiny.Mvmap(0x200, 0x90400, paging.Size4K, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrFrameAllocFailed))

		ppn, size, _, err := tiny.Walk(0x200)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90200)))
		Expect(size).To(Equal(paging.Size2M))
	})

	It("updates permissions and keeps the huge tag", func() {
		Expect(table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		Expect(table.UpdateFlags(0x200, pte.UserRead())).To(Succeed())

		ppn, size, flags, err := table.Walk(0x234)
		Expect(err).ToNot(HaveOccurred())
		Expect(ppn).To(Equal(addr.Ppn(0x90200)))
		Expect(size).To(Equal(paging.Size2M))
		Expect(flags.Has(pte.FlagWriteable)).To(BeFalse())
	})

	It("translates through the page offset", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		p, ok := table.Translate(0x10abc)
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(addr.Paddr(0x90123abc)))
	})

	It("translates inside a huge page", func() {
		Expect(table.Map(0x200, 0x90200, paging.Size2M, pte.UserRW())).
			To(Succeed())

		p, ok := table.Translate(0x234abc)
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(addr.Paddr(0x90234abc)))
	})

	It("serves stale translations until the TLB is flushed", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		_, ok := table.Translate(0x10000)
		Expect(ok).To(BeTrue())

		_, _, err := table.Unmap(0x10)
		Expect(err).ToNot(HaveOccurred())

		p, ok := table.Translate(0x10000)
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(addr.Paddr(0x90123000)))

		table.FlushTLB(0x10)

		_, ok = table.Translate(0x10000)
		Expect(ok).To(BeFalse())
	})

	It("activates by loading the root and flushing the TLB", func() {
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())
		_, ok := table.Translate(0x10000)
		Expect(ok).To(BeTrue())

		table.Activate()

		Expect(core.ActiveRootPpn()).To(Equal(table.RootPpn()))
		Expect(core.TLB().EntryCount()).To(Equal(0))
	})

	It("maps and unmaps ranges", func() {
		r := addr.NewVpnRange(0x10, 0x14)
		Expect(table.MapRange(r, 0x90100, paging.Size4K, pte.UserRW())).
			To(Succeed())

		for i := uint64(0); i < 4; i++ {
			ppn, _, _, err := table.Walk(addr.Vpn(0x10 + i))
			Expect(err).ToNot(HaveOccurred())
			Expect(ppn).To(Equal(addr.Ppn(0x90100 + i)))
		}

		Expect(table.UnmapRange(r)).To(Succeed())

		for i := uint64(0); i < 4; i++ {
			_, _, _, err := table.Walk(addr.Vpn(0x10 + i))
			Expect(err).To(MatchError(paging.ErrNotMapped))
		}
	})

	It("updates permissions across a range", func() {
		r := addr.NewVpnRange(0x10, 0x14)
		Expect(table.MapRange(r, 0x90100, paging.Size4K, pte.UserRW())).
			To(Succeed())

		Expect(table.UpdateFlagsRange(r, pte.UserRead())).To(Succeed())

		for i := uint64(0); i < 4; i++ {
			_, _, flags, err := table.Walk(addr.Vpn(0x10 + i))
			Expect(err).ToNot(HaveOccurred())
			Expect(flags.Has(pte.FlagWriteable)).To(BeFalse())
		}
	})

	It("propagates frame exhaustion while building the path", func() {
		mem := phys.MakeBuilder().
			WithBasePaddr(0x9000_0000).
			WithNumFrames(2).
			Build()
		tinyAlloc := phys.NewFrameAllocator(mem)

		tiny, err := MakeBuilder().
			WithAllocator(tinyAlloc).
			WithCore(core).
			Build()
		Expect(err).ToNot(HaveOccurred())

		err = tiny.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())
		Expect(err).To(MatchError(paging.ErrFrameAllocFailed))
	})

	It("returns its structure frames on Release", func() {
		free0 := alloc.FreeCount()

		owned, err := MakeBuilder().
			WithAllocator(alloc).
			WithCore(core).
			Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(owned.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		owned.Release()

		Expect(alloc.FreeCount()).To(Equal(free0))
	})

	It("panics when released twice", func() {
		owned, err := MakeBuilder().
			WithAllocator(alloc).
			WithCore(core).
			Build()
		Expect(err).ToNot(HaveOccurred())

		owned.Release()
		Expect(func() { owned.Release() }).To(Panic())
	})

	It("keeps directory entries invisible to the valid bit", func() {
		// A directory slot is a bare address: the walker must not read
		// it as a mapped leaf even though it is non-zero.
		Expect(table.Map(0x10, 0x90123, paging.Size4K, pte.UserRW())).
			To(Succeed())

		_, _, _, err := table.Walk(0x11)
		Expect(err).To(MatchError(paging.ErrNotMapped))
	})
})
