package tlb_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/pte"
	"github.com/polyarch/vmem/mem/tlb"
)

var _ = Describe("TLB", func() {
	var t *tlb.TLB

	entry := func(vpn addr.Vpn, ppn addr.Ppn) tlb.Entry {
		return tlb.Entry{
			Vpn:       vpn,
			Ppn:       ppn,
			Flags:     pte.UserRW(),
			PageBytes: addr.PageSize,
		}
	}

	BeforeEach(func() {
		t = tlb.MakeBuilder().WithNumSets(4).WithNumWays(2).Build()
	})

	It("should miss on an empty cache", func() {
		_, found := t.Lookup(0x100)
		Expect(found).To(BeFalse())
	})

	It("should hit after an add", func() {
		t.Add(entry(0x100, 0x80000))

		e, found := t.Lookup(0x100)
		Expect(found).To(BeTrue())
		Expect(e.Ppn).To(Equal(addr.Ppn(0x80000)))
		Expect(e.Flags).To(Equal(pte.UserRW()))
	})

	It("should overwrite an existing translation in place", func() {
		t.Add(entry(0x100, 0x80000))
		t.Add(entry(0x100, 0x90000))

		e, found := t.Lookup(0x100)
		Expect(found).To(BeTrue())
		Expect(e.Ppn).To(Equal(addr.Ppn(0x90000)))
		Expect(t.EntryCount()).To(Equal(1))
	})

	It("should keep a stale translation until invalidated", func() {
		t.Add(entry(0x100, 0x80000))
		t.Invalidate(0x100)

		_, found := t.Lookup(0x100)
		Expect(found).To(BeFalse())
	})

	It("should tolerate invalidating an uncached page", func() {
		t.Invalidate(0x999)
		Expect(t.EntryCount()).To(Equal(0))
	})

	It("should drop every cached sub-page of a huge leaf", func() {
		hugeEntry := func(vpn addr.Vpn) tlb.Entry {
			return tlb.Entry{
				Vpn:       vpn,
				Ppn:       addr.Ppn(0x80000 + uint64(vpn)&0x1ff),
				Flags:     pte.UserRW(),
				PageBytes: 2 << 20,
			}
		}

		// Sub-pages of the 2M leaf based at vpn 0x200.
		t.Add(hugeEntry(0x200))
		t.Add(hugeEntry(0x2ff))
		t.Add(hugeEntry(0x3ff))
		// A base page outside the leaf.
		t.Add(entry(0x400, 0x90000))

		t.Invalidate(0x234)

		_, found := t.Lookup(0x200)
		Expect(found).To(BeFalse())
		_, found = t.Lookup(0x2ff)
		Expect(found).To(BeFalse())
		_, found = t.Lookup(0x3ff)
		Expect(found).To(BeFalse())

		_, found = t.Lookup(0x400)
		Expect(found).To(BeTrue())
	})

	It("should evict the least recently used way when a set is full", func() {
		// Same set: vpns congruent mod numSets (4).
		t.Add(entry(0x10, 1))
		t.Add(entry(0x14, 2))

		// Touch 0x10 so 0x14 becomes the LRU way.
		t.Lookup(0x10)

		t.Add(entry(0x18, 3))

		_, found := t.Lookup(0x14)
		Expect(found).To(BeFalse())

		_, found = t.Lookup(0x10)
		Expect(found).To(BeTrue())
		_, found = t.Lookup(0x18)
		Expect(found).To(BeTrue())
	})

	It("should drop everything on flush", func() {
		for i := addr.Vpn(0); i < 16; i++ {
			t.Add(entry(i, addr.Ppn(i)+0x80000))
		}
		Expect(t.EntryCount()).To(BeNumerically(">", 0))

		t.Flush()

		Expect(t.EntryCount()).To(Equal(0))
		_, found := t.Lookup(0)
		Expect(found).To(BeFalse())
	})
})
